package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks   map[string]Check
	provider string
}

func NewHealthHandler(provider string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks, provider: provider}
}

type HealthResponse struct {
	Status       string            `json:"status"`
	LLMProvider  string            `json:"llm_provider"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	res := HealthResponse{Status: "ok", LLMProvider: h.provider, Dependencies: map[string]string{}}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			res.Dependencies[name] = "down: " + err.Error()
			res.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Dependencies[name] = "up"
	}
	c.JSON(status, res)
}
