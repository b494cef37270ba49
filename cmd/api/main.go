package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exam-hall-api/internal/auth"
	"github.com/noah-isme/exam-hall-api/internal/config"
	"github.com/noah-isme/exam-hall-api/internal/database"
	"github.com/noah-isme/exam-hall-api/internal/handler"
	"github.com/noah-isme/exam-hall-api/internal/middleware"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/repository"
	"github.com/noah-isme/exam-hall-api/internal/router"
	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/pkg/mailer"
	"github.com/noah-isme/exam-hall-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, student exam cache disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, acceptance events will not be published")
		} else {
			defer natsConn.Drain()
		}
	}

	files, err := newFileStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure document storage: %v", err)
	}

	var mail service.Mailer = mailer.NewLog(logger)
	if cfg.SMTPEnabled() {
		smtpMailer, err := mailer.NewSMTP(mailer.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}, logger)
		if err != nil {
			log.Fatalf("failed to configure smtp: %v", err)
		}
		mail = smtpMailer
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("failed to configure tokens: %v", err)
	}
	hasher, err := auth.NewPasswordHasher(0)
	if err != nil {
		log.Fatalf("failed to configure password hashing: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)
	examCache := service.NewExamCache(redisClient, cfg.ExamsCacheTTL, logger)

	authService := service.NewAuthService(store.Users(), hasher, tokens, validate, logger)
	adminStudentService := service.NewAdminStudentService(store, hasher, validate, logger)
	examService := service.NewExamService(store, examCache, validate, logger)
	documentService := service.NewDocumentService(files, store, cfg.UploadMaxMB, logger)
	groupService := service.NewGroupService(store, examCache, validate, logger)
	notificationService := service.NewNotificationService(mail, natsConn, logger)
	formService := service.NewExamFormService(store, notificationService, validate, logger)
	studentExamService := service.NewStudentExamService(store.Exams(), examCache, logger)
	hallTicketService := service.NewHallTicketService(store, logger)
	auditService := service.NewAuditService(store.AuditLogs(), logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// Leave room for multipart framing around the largest allowed document.
		BodyLimit: (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, middleware.RateLimit("auth_login", cfg.LoginRateLimit, cfg.LoginRateWindow), logger),
		AdminStudentHandler: handler.NewAdminStudentHandler(adminStudentService, logger),
		AdminExamHandler:    handler.NewAdminExamHandler(examService, documentService, logger),
		AdminGroupHandler:   handler.NewAdminGroupHandler(groupService, logger),
		AdminFormHandler:    handler.NewAdminFormHandler(formService, logger),
		AdminAuditHandler:   handler.NewAdminAuditHandler(auditService, logger),
		StudentHandler:      handler.NewStudentHandler(studentExamService, formService, hallTicketService, logger),
		JWTMiddleware:       middleware.JWTProtected(tokens),
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("storage", cfg.StorageDriver).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func newFileStorage(ctx context.Context, cfg config.Config, logger zerolog.Logger) (service.FileStorage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverCloudinary:
		return storage.NewCloudinary(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	case config.StorageDriverMinio:
		return storage.NewMinio(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
	default:
		return storage.NewLocal(cfg.StorageLocalDir, logger)
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
