package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bcllcc/MockMate/config"
	"github.com/bcllcc/MockMate/internal/api/handlers"
	"github.com/bcllcc/MockMate/internal/api/routes"
	"github.com/bcllcc/MockMate/internal/cache"
	"github.com/bcllcc/MockMate/internal/lock"
	"github.com/bcllcc/MockMate/internal/logger"
	"github.com/bcllcc/MockMate/internal/providers/llm"
	"github.com/bcllcc/MockMate/internal/providers/stt"
	mongorepo "github.com/bcllcc/MockMate/internal/repositories/mongo"
	pgrepo "github.com/bcllcc/MockMate/internal/repositories/postgres"
	"github.com/bcllcc/MockMate/internal/services"
	"github.com/bcllcc/MockMate/internal/storage"
)

func main() {
	cfg := config.LoadAppConfig()
	log := logger.New()
	ctx := context.Background()

	// PostgreSQL (required)
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	if err := config.MigratePostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL migration error")
	}
	log.Info("PostgreSQL connected")

	checks := map[string]handlers.Check{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := config.PostgresDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Redis (optional): distributed session locks and the shared resume cache
	var (
		locker      lock.Locker = lock.NewLocalLocker()
		resumeCache cache.Cache
	)
	switch err := config.InitRedis(); {
	case err == nil:
		locker = lock.NewRedisLocker(config.RedisClient, cfg.SessionLockTTL, log)
		resumeCache = cache.NewRedisCache(config.RedisClient, cache.DefaultPrefix)
		checks["redis"] = func(ctx context.Context) error { return config.RedisClient.Ping(ctx).Err() }
		log.Info("Redis connected")
	case errors.Is(err, config.ErrRedisNotConfigured):
		log.Info("Redis not configured, using in-process session locks")
	default:
		log.WithError(err).Warn("Redis unavailable, using in-process session locks")
	}

	// LLM audit trail: rotating file, plus MongoDB when configured
	auditLog, err := logger.NewRotating(cfg.LLMLogPath, 0, 0)
	if err != nil {
		log.WithError(err).Fatal("LLM audit log init error")
	}
	sinks := llm.MultiSink{llm.NewFileAuditSink(auditLog)}
	switch err := config.InitMongo(); {
	case err == nil:
		if err := config.EnsureMongoIndexes(); err != nil {
			log.WithError(err).Warn("MongoDB index creation failed")
		}
		sinks = append(sinks, llm.SinkFunc(mongorepo.NewAuditRepo(config.MongoDatabase()).Insert))
		checks["mongo"] = func(ctx context.Context) error { return config.MongoClient.Ping(ctx, nil) }
		log.Info("MongoDB connected")
	case errors.Is(err, config.ErrMongoNotConfigured):
		log.Info("MongoDB not configured, LLM audit goes to file only")
	default:
		log.WithError(err).Warn("MongoDB unavailable, LLM audit goes to file only")
	}
	auditor := llm.NewAsyncAuditor(sinks, llm.AuditOptions{
		MaxFieldBytes: cfg.AuditMaxFieldBytes,
		TTL:           cfg.AuditTTL,
	}, log)
	defer auditor.Close()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("LLM provider init error")
	}
	defer provider.Close()
	log.WithField("provider", provider.Name()).Info("LLM provider ready")

	var recognizer stt.Provider
	if cfg.STTEnabled {
		g, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Warn("speech recognition unavailable")
		} else {
			recognizer = g
			defer g.Close()
		}
	}

	var uploader storage.Uploader
	if cfg.GCSBucket != "" {
		u, err := storage.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			log.WithError(err).Warn("answer audio archiving disabled")
		} else {
			uploader = u
			defer u.Close()
		}
	}

	// Services
	store := pgrepo.NewUnitOfWork(config.PostgresDB)
	interviewer := services.NewInterviewer(llm.NewClient(provider, auditor, log), log)
	interviews := services.NewInterviewService(store, interviewer, locker, services.InterviewOptions{
		DefaultQuestionCount: cfg.DefaultQuestionCount,
		MaxQuestionCount:     cfg.MaxQuestionCount,
		MaxFollowUps:         cfg.MaxFollowUps,
	}, log)
	streams := services.NewStreamService(interviews, interviewer, log)
	resumes := services.NewResumeAnalyzer(interviewer, resumeCache, services.ResumeOptions{
		CacheSize: cfg.ResumeCacheSize,
		MaxChars:  cfg.ResumeMaxChars,
		CacheTTL:  cfg.ResumeCacheTTL,
	}, log)
	voice := services.NewVoiceAnswerService(store, interviews, recognizer, uploader, log)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		Interview:   handlers.NewInterviewHandler(interviews),
		Stream:      handlers.NewStreamHandler(streams),
		WS:          handlers.NewWSHandler(interviews, streams, cfg.CORSOrigins, log),
		Voice:       handlers.NewVoiceHandler(voice),
		Resume:      handlers.NewResumeHandler(resumes),
		Health:      handlers.NewHealthHandler(provider.Name(), checks),
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server error")
		}
	}()

	sig, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sig.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown")
	}
	if config.RedisClient != nil {
		_ = config.RedisClient.Close()
	}
	if config.MongoClient != nil {
		_ = config.MongoClient.Disconnect(shutdownCtx)
	}
	log.Info("server stopped")
}

func newProvider(ctx context.Context, cfg *config.AppConfig) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "vertex":
		return llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.LLMModel)
	case "openai", "deepseek":
		if cfg.LLMAPIKey == "" {
			return nil, errors.New("LLM_API_KEY (or DEEPSEEK_API_KEY) environment variable is not set")
		}
		return llm.NewOpenAICompatible(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel), nil
	}
	return nil, errors.New("unknown LLM_PROVIDER " + cfg.LLMProvider + " (want openai or vertex)")
}
