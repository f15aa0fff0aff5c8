package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/presensi-api/internal/config"
	"github.com/noah-isme/presensi-api/internal/handler"
	"github.com/noah-isme/presensi-api/internal/middleware"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler    *handler.SessionHandler
	AttendanceHandler *handler.AttendanceHandler
	FaceHandler       *handler.FaceHandler
	ReportHandler     *handler.ReportHandler
	FeedHandler       *handler.FeedHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Teacher session lifecycle and proof issuing
	if deps.SessionHandler != nil {
		sessions := app.Group("/api/v1/sessions", jwtMiddleware,
			middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.SessionHandler.Register(sessions)
	}

	// Student self-marking, rate limited against proof guessing
	if deps.AttendanceHandler != nil {
		marking := app.Group("/api/v1/attendance", jwtMiddleware,
			middleware.RequireRole(models.RoleStudent),
			middleware.RateLimit("attendance", 10, time.Minute))
		deps.AttendanceHandler.RegisterStudent(marking)

		corrections := app.Group("/api/v1/teacher/attendance", jwtMiddleware,
			middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.AttendanceHandler.RegisterTeacher(corrections)
	}

	// Biometric enrollment and kiosk marking
	if deps.FaceHandler != nil {
		face := app.Group("/api/v1/face", jwtMiddleware)
		deps.FaceHandler.RegisterMark(face)
		deps.FaceHandler.RegisterEnroll(face.Group("",
			middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)))
	}

	// Reports and the student dashboard
	if deps.ReportHandler != nil {
		reports := app.Group("/api/v1/reports", jwtMiddleware,
			middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.ReportHandler.RegisterReports(reports)

		student := app.Group("/api/v1/student", jwtMiddleware,
			middleware.RequireRole(models.RoleStudent))
		deps.ReportHandler.RegisterDashboard(student)
	}

	// Live attendance feed
	if deps.FeedHandler != nil {
		feed := app.Group("/api/v1/feed", jwtMiddleware,
			middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.FeedHandler.Register(feed)
	}
}
