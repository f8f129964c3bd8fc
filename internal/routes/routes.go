package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/prometheus/client_golang/prometheus"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	gatherer prometheus.Gatherer,
	healthHandler *handlers.HealthHandler,
	complaintHandler *handlers.ComplaintHandler,
	notificationHandler *handlers.NotificationHandler,
	departmentHandler *handlers.DepartmentHandler,
	escalationHandler *handlers.EscalationHandler,
	analyticsHandler *handlers.AnalyticsHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(gatherer)))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Engine calls run on c.UserContext(), which the timeout bounds.
	protected := api.Group("", middleware.JWTProtected(cfg), timeout.NewWithContext(func(c *fiber.Ctx) error {
		return c.Next()
	}, cfg.RequestTimeout))

	// Stricter limit on submissions: 10 req/min per IP
	submitLimit := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})

	complaints := protected.Group("/complaints")
	complaints.Post("/", submitLimit, middleware.RequireRole(identity.RoleStudent), complaintHandler.Create)
	complaints.Get("/", complaintHandler.List)
	complaints.Get("/stats", complaintHandler.Stats)
	complaints.Get("/:id", complaintHandler.Get)
	complaints.Put("/:id/status", middleware.RequireRole(identity.RoleDepartment, identity.RoleAdmin), complaintHandler.UpdateStatus)
	complaints.Put("/:id/feedback", middleware.RequireRole(identity.RoleStudent), complaintHandler.SubmitFeedback)

	notifications := protected.Group("/notifications")
	notifications.Get("/", notificationHandler.List)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)
	notifications.Put("/:id/read", notificationHandler.MarkRead)

	protected.Get("/departments", departmentHandler.List)

	analytics := protected.Group("/analytics")
	analytics.Get("/dashboard", middleware.RequireRole(identity.RoleAdmin), analyticsHandler.Dashboard)
	analytics.Get("/department/:department", middleware.RequireRole(identity.RoleDepartment, identity.RoleAdmin), analyticsHandler.Department)

	admin := protected.Group("/admin", middleware.RequireRole(identity.RoleAdmin))
	admin.Post("/departments/reconcile", departmentHandler.Reconcile)
	admin.Post("/escalations/sweep", escalationHandler.Sweep)
}
