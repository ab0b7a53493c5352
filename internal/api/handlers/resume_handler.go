package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bcllcc/MockMate/internal/services"
)

type ResumeHandler struct {
	svc services.ResumeAnalyzer
}

func NewResumeHandler(svc services.ResumeAnalyzer) *ResumeHandler {
	return &ResumeHandler{svc: svc}
}

type AnalyzeResumeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (h *ResumeHandler) Analyze(c *gin.Context) {
	var req AnalyzeResumeRequest
	if !bindJSON(c, "ResumeHandler.Analyze", &req) {
		return
	}

	insights, err := h.svc.Analyze(c.Request.Context(), req.Text, req.Language)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}
