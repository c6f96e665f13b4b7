package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/api/handlers"
	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

// Services holds the long-lived services behind the API.
type Services struct {
	Auth          *services.AuthService
	BlockRequests *services.BlockRequestService
	Notifications *services.NotificationService
	Backlog       *services.BacklogService
	Limiter       services.SubmissionLimiter
}

type options struct {
	notifier   services.Notifier
	alerts     services.AlertSender
	limiter    services.SubmissionLimiter
	limiterSet bool
}

// Option overrides a collaborator that is otherwise built from the config.
type Option func(*options)

// WithNotifier replaces the SMTP notifier.
func WithNotifier(n services.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithAlertSender replaces the shoutrrr alert sender.
func WithAlertSender(a services.AlertSender) Option {
	return func(o *options) { o.alerts = a }
}

// WithLimiter replaces the submission limiter. A nil limiter disables throttling.
func WithLimiter(l services.SubmissionLimiter) Option {
	return func(o *options) {
		o.limiter = l
		o.limiterSet = true
	}
}

// NewServices builds the services from the configuration.
func NewServices(db *gorm.DB, cfg config.Config, opts ...Option) (*Services, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	alerts := o.alerts
	if alerts == nil {
		var err error
		if alerts, err = services.NewShoutrrrSender(cfg.AlertURLs); err != nil {
			return nil, err
		}
	}
	notifications := services.NewNotificationService(db, alerts)

	notifier := o.notifier
	if notifier == nil {
		if mail := services.NewMailService(cfg.SMTP); mail.IsConfigured() {
			notifier = mail
		} else {
			logger.Log().Warn("SMTP is not configured; resolution emails will be reported as failed")
		}
	}

	limiter := o.limiter
	if !o.limiterSet {
		var err error
		if limiter, err = services.NewSubmissionLimiter(cfg.Throttle); err != nil {
			return nil, fmt.Errorf("submission limiter: %w", err)
		}
	}

	blockRequests := services.NewBlockRequestService(db, notifier, notifications)
	return &Services{
		Auth:          services.NewAuthService(db, cfg.Auth),
		BlockRequests: blockRequests,
		Notifications: notifications,
		Backlog:       services.NewBacklogService(blockRequests, cfg.BacklogSchedule),
		Limiter:       limiter,
	}, nil
}

// Register wires up API routes. gatherer backs the /metrics endpoint.
func Register(router *gin.Engine, db *gorm.DB, svc *Services, gatherer prometheus.Gatherer) {
	router.GET("/api/v1/health", handlers.NewHealthHandler(db).Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(svc.Auth))

	adminOnly := middleware.RequireRole(models.RoleAdmin)

	blockRequestHandler := handlers.NewBlockRequestHandler(svc.BlockRequests)
	throttle := middleware.ThrottleSubmissions(svc.Limiter)
	for _, base := range []string{"/block_request", "/block_request/"} {
		api.GET(base, adminOnly, blockRequestHandler.List)
		api.POST(base, throttle, blockRequestHandler.Create)
	}
	for _, item := range []string{"/block_request/:id", "/block_request/:id/"} {
		api.GET(item, adminOnly, blockRequestHandler.Get)
		api.PUT(item, adminOnly, blockRequestHandler.Update)
		api.PATCH(item, adminOnly, blockRequestHandler.Patch)
		api.DELETE(item, adminOnly, blockRequestHandler.Delete)
	}

	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	notifications := api.Group("/notifications", adminOnly)
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkAsRead)
	notifications.POST("/read-all", notificationHandler.MarkAllAsRead)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
}
