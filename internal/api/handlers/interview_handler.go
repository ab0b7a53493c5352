package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/services"
)

type InterviewHandler struct {
	svc services.InterviewService
}

func NewInterviewHandler(svc services.InterviewService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

type EndInterviewRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type EndInterviewResponse struct {
	SessionID string           `json:"session_id"`
	Completed bool             `json:"completed"`
	Feedback  *models.Feedback `json:"feedback"`
}

func (h *InterviewHandler) Start(c *gin.Context) {
	var req services.StartInput
	if !bindJSON(c, "InterviewHandler.Start", &req) {
		return
	}

	res, err := h.svc.Start(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) Respond(c *gin.Context) {
	var req services.AnswerInput
	if !bindJSON(c, "InterviewHandler.Respond", &req) {
		return
	}

	res, err := h.svc.Answer(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) End(c *gin.Context) {
	var req EndInterviewRequest
	if !bindJSON(c, "InterviewHandler.End", &req) {
		return
	}

	feedback, err := h.svc.End(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, EndInterviewResponse{SessionID: req.SessionID, Completed: true, Feedback: feedback})
}

func (h *InterviewHandler) History(c *gin.Context) {
	items, err := h.svc.ListHistory(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": items})
}

func (h *InterviewHandler) Detail(c *gin.Context) {
	detail, err := h.svc.GetDetail(c.Request.Context(), c.Param("session_id"), c.Query("owner_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GenerateQuestions returns a question plan without starting a session.
func (h *InterviewHandler) GenerateQuestions(c *gin.Context) {
	var req services.StartInput
	if !bindJSON(c, "InterviewHandler.GenerateQuestions", &req) {
		return
	}

	questions, err := h.svc.GenerateQuestions(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
