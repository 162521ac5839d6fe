package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/BenAmorMed/ExamSupervisor/api/swagger"
	"github.com/BenAmorMed/ExamSupervisor/internal/handler"
	"github.com/BenAmorMed/ExamSupervisor/internal/notify"
	"github.com/BenAmorMed/ExamSupervisor/internal/repository"
	"github.com/BenAmorMed/ExamSupervisor/internal/scheduler"
	"github.com/BenAmorMed/ExamSupervisor/internal/service"
	"github.com/BenAmorMed/ExamSupervisor/pkg/cache"
	"github.com/BenAmorMed/ExamSupervisor/pkg/config"
	"github.com/BenAmorMed/ExamSupervisor/pkg/database"
	"github.com/BenAmorMed/ExamSupervisor/pkg/jobs"
	"github.com/BenAmorMed/ExamSupervisor/pkg/logger"
	corsmiddleware "github.com/BenAmorMed/ExamSupervisor/pkg/middleware/cors"
	reqidmiddleware "github.com/BenAmorMed/ExamSupervisor/pkg/middleware/requestid"
)

// @title Exam Supervisor API
// @version 1.0.0
// @description Exam supervision allocation service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, session list caching disabled", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	gradeRepo := repository.NewGradeRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	supervisionRepo := repository.NewSupervisionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(teacherRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	gradeService := service.NewGradeService(gradeRepo, nil, logr)
	subjectService := service.NewSubjectService(subjectRepo, nil, logr)
	teacherService := service.NewTeacherService(teacherRepo, gradeRepo, subjectRepo, nil, logr)
	sessionService := service.NewSessionService(sessionRepo, cacheRepo, nil, logr)
	allocationService := service.NewAllocationService(
		teacherRepo, gradeRepo, subjectRepo, sessionRepo, supervisionRepo,
		cacheRepo, cfg.Cache.SessionListTTL, metricsService, logr,
	)

	var notifier service.Notifier
	if cfg.Mailer.Enabled {
		notifier = notify.NewMailer(cfg.Mailer, logr)
	} else {
		notifier = notify.NewNopNotifier(logr)
	}
	autoAssignService := service.NewAutoAssignService(
		teacherRepo, gradeRepo, sessionRepo, supervisionRepo,
		notifier, nil, metricsService, logr,
	)
	exportService := service.NewExportService(sessionRepo, sessionRepo, teacherRepo, nil, nil, logr)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batchQueue := jobs.NewQueue("auto-assign", func(ctx context.Context, job jobs.Job) error {
		if job.Type != scheduler.JobTypeAutoAssignBatch {
			logr.Sugar().Warnw("unknown job type", "type", job.Type)
			return nil
		}
		return autoAssignService.RunBatch(ctx)
	}, jobs.QueueConfig{Workers: cfg.AutoAssign.Workers, Logger: logr})
	batchQueue.Start(rootCtx)
	defer batchQueue.Stop()

	if cfg.AutoAssign.Enabled {
		sched := scheduler.New(autoAssignService, batchQueue, cfg.AutoAssign.CheckInterval, logr)
		go sched.Run(rootCtx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Sessions:   handler.NewSessionHandler(allocationService, sessionService, exportService),
		Allocation: handler.NewAllocationHandler(allocationService, exportService),
		Grades:     handler.NewGradeHandler(gradeService),
		Subjects:   handler.NewSubjectHandler(subjectService),
		Teachers:   handler.NewTeacherHandler(teacherService),
		AutoAssign: handler.NewAutoAssignHandler(autoAssignService),
		Metrics:    handler.NewMetricsHandler(metricsService, db.Ping),
	}
	handler.RegisterRoutes(r, handlers, authService, metricsService)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
