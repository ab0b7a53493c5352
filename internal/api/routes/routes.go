package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/api/handlers"
	"github.com/bcllcc/MockMate/internal/api/middleware"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	Stream    *handlers.StreamHandler
	WS        *handlers.WSHandler
	Voice     *handlers.VoiceHandler
	Resume    *handlers.ResumeHandler
	Health    *handlers.HealthHandler

	CORSOrigins []string
	Log         *logrus.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestLogger(d.Log))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(d.CORSOrigins)))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	api.GET("/health", d.Health.Health)

	interview := api.Group("/interview")
	interview.POST("/start", d.Interview.Start)
	interview.POST("/start-stream", d.Stream.Start)
	interview.POST("/respond", d.Interview.Respond)
	interview.POST("/respond-stream", d.Stream.Respond)
	interview.POST("/end", d.Interview.End)
	interview.GET("/history", d.Interview.History)
	interview.GET("/session/:session_id", d.Interview.Detail)
	interview.POST("/session/:session_id/answer-audio", d.Voice.AnswerAudio)

	api.POST("/questions/generate", d.Interview.GenerateQuestions)
	api.POST("/resume/analyze", d.Resume.Analyze)

	// WebSocket
	api.GET("/ws/interview/:session_id", d.WS.InterviewWS)
}
