package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bcllcc/MockMate/internal/services"
	"github.com/bcllcc/MockMate/internal/utils"
)

const maxAudioBytes = 10 << 20

type VoiceHandler struct {
	svc services.VoiceAnswerService
}

func NewVoiceHandler(svc services.VoiceAnswerService) *VoiceHandler {
	return &VoiceHandler{svc: svc}
}

// AnswerAudio accepts a multipart "file" with the recorded answer and an
// optional "elapsed_seconds" form value.
func (h *VoiceHandler) AnswerAudio(c *gin.Context) {
	const op = "VoiceHandler.AnswerAudio"

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > maxAudioBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio must be between 1 byte and 10MB", nil))
		return
	}

	var elapsed *float64
	if v := strings.TrimSpace(c.PostForm("elapsed_seconds")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "elapsed_seconds must be a number", err))
			return
		}
		elapsed = &f
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	res, err := h.svc.Answer(c.Request.Context(), services.VoiceAnswerInput{
		SessionID:      c.Param("session_id"),
		Audio:          data,
		ContentType:    contentType,
		ElapsedSeconds: elapsed,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
