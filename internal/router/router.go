package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/exam-hall-api/internal/config"
	"github.com/noah-isme/exam-hall-api/internal/handler"
	"github.com/noah-isme/exam-hall-api/internal/middleware"
	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	AdminStudentHandler *handler.AdminStudentHandler
	AdminExamHandler    *handler.AdminExamHandler
	AdminGroupHandler   *handler.AdminGroupHandler
	AdminFormHandler    *handler.AdminFormHandler
	AdminAuditHandler   *handler.AdminAuditHandler
	StudentHandler      *handler.StudentHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}

	// Shared with students, so it must be matched before the admin-only guard below.
	if deps.AdminExamHandler != nil {
		api.Get("/admin/exams/:id/document",
			jwtMiddleware,
			middleware.RequireRole(string(models.RoleAdmin), string(models.RoleStudent)),
			deps.AdminExamHandler.StreamDocument,
		)
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(string(models.RoleAdmin)))
	if deps.AdminStudentHandler != nil {
		deps.AdminStudentHandler.Register(admin.Group("/students"))
	}
	if deps.AdminExamHandler != nil {
		deps.AdminExamHandler.Register(admin.Group("/exams"))
	}
	if deps.AdminGroupHandler != nil {
		deps.AdminGroupHandler.Register(admin.Group("/groups"))
	}
	if deps.AdminFormHandler != nil {
		deps.AdminFormHandler.Register(admin.Group("/forms"))
	}
	if deps.AdminAuditHandler != nil {
		deps.AdminAuditHandler.Register(admin.Group("/audit-logs"))
	}

	if deps.StudentHandler != nil {
		student := api.Group("/student", jwtMiddleware, middleware.RequireRole(string(models.RoleStudent)))
		deps.StudentHandler.Register(student)
	}
}
