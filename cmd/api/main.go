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
	"github.com/rs/zerolog"

	"github.com/noah-isme/presensi-api/internal/config"
	"github.com/noah-isme/presensi-api/internal/database"
	"github.com/noah-isme/presensi-api/internal/facematch"
	"github.com/noah-isme/presensi-api/internal/handler"
	"github.com/noah-isme/presensi-api/internal/middleware"
	"github.com/noah-isme/presensi-api/internal/proof"
	"github.com/noah-isme/presensi-api/internal/repository"
	"github.com/noah-isme/presensi-api/internal/router"
	"github.com/noah-isme/presensi-api/internal/service"
	cloud "github.com/noah-isme/presensi-api/pkg/cloudinary"
	"github.com/noah-isme/presensi-api/pkg/facerec"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, dashboard cache and feed fan-out disabled")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, feed limited to redis fan-out")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	var uploader service.ImageUploader
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	codec := proof.NewTokenCodec(cfg.QRSecret, cfg.QRProofTTL)
	extractor := facerec.New(cfg.FaceServiceURL, logger)
	engine := facematch.NewEngine(extractor, cfg.FaceMatchTolerance, logger)

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()

	feedService := service.NewFeedService(redisClient, cfg.EventChannelBase, natsConn, logger)
	feedService.Start(feedCtx)

	sessionService := service.NewSessionService(sessionRepo, timetableRepo, studentRepo, attendanceRepo, validate, logger)
	proofService := service.NewProofService(sessionRepo, codec, cfg.ManualCodeTTL, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, sessionRepo, studentRepo, proofService, feedService, logger)
	faceService := service.NewFaceService(studentRepo, engine, sessionService, attendanceService, uploader, validate, cfg.MaxEnrollSamples, logger)
	reportService := service.NewReportService(attendanceRepo, logger)
	dashboardService := service.NewDashboardService(studentRepo, sessionRepo, attendanceRepo, redisClient, cfg.DashboardCacheTTL, logger)

	sessionHandler := handler.NewSessionHandler(sessionService, proofService, teacherRepo, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, teacherRepo, validate, logger)
	faceHandler := handler.NewFaceHandler(faceService, logger)
	reportHandler := handler.NewReportHandler(reportService, dashboardService, logger)
	feedHandler := handler.NewFeedHandler(feedService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:    sessionHandler,
		AttendanceHandler: attendanceHandler,
		FaceHandler:       faceHandler,
		ReportHandler:     reportHandler,
		FeedHandler:       feedHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopFeed)
}

func waitForShutdown(app *fiber.App, stopFeed context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopFeed()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
