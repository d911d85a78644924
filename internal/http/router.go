// Package httpapi wires the Gin transport to the automation services and
// installs the cross-cutting middleware: tracing, request ids, redacted
// access logs, panic recovery, metrics, idempotency, rate limiting, CORS
// and security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/diljot111/easy-software/docs"
	"github.com/diljot111/easy-software/internal/config"
	"github.com/diljot111/easy-software/internal/domain"
	"github.com/diljot111/easy-software/internal/http/handlers"
	"github.com/diljot111/easy-software/internal/http/middleware"
	"github.com/diljot111/easy-software/internal/repo"
	"github.com/diljot111/easy-software/internal/services"
)

// Services are the application services the API exposes.
type Services struct {
	Automation handlers.Runner
	Sweeper    handlers.Sweeper
	Rules      handlers.RuleManager
	Templates  handlers.TemplateManager
}

// deliveryStore adapts the webhook delivery repository to
// handlers.DeliveryStore.
type deliveryStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s deliveryStore) Find(ctx context.Context, tenantID uint, key string) (*domain.WebhookDelivery, error) {
	rec, err := repo.GetDelivery(ctx, s.db, tenantID, key, time.Now().UTC())
	if repo.IsNotFound(err) {
		return nil, nil
	}
	return rec, err
}

func (s deliveryStore) Save(ctx context.Context, tenantID uint, key string, status int, res services.RunResult) error {
	_, err := repo.CreateDelivery(ctx, s.db, tenantID, key, status, res.Queued, res.Sent, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent delivery with the same key got there first.
		return nil
	}
	return err
}

var corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
var corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}

// RegisterRoutes installs middleware and mounts the API under
// cfg.APIBasePath. Order: tracing, request id, access log, recovery, body
// cap, metrics, idempotency (ahead of the limiter so replays bypass it),
// rate limit, CORS, security headers.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-Hub-Signature-256"}}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, tenantID uint, key string, now time.Time) (bool, error) {
			rec, err := repo.GetDelivery(ctx, db, tenantID, key, now)
			if err != nil {
				return false, nil
			}
			return rec != nil, nil
		},
	))
	r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP()).Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    corsMethods,
			AllowHeaders:    corsHeaders,
			ExposeHeaders:   []string{"X-Request-ID", "Idempotency-Replayed"},
			MaxAge:          12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  corsMethods,
			AllowHeaders:  corsHeaders,
			ExposeHeaders: []string{"X-Request-ID", "Idempotency-Replayed"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc.Automation, svc.Sweeper, svc.Rules, svc.Templates,
		deliveryStore{db: db, ttl: cfg.IdempotencyTTL})

	if cfg.Automation.AdminSecret == "" {
		log.Warn().Msg("ADMIN_SECRET and CRON_SECRET are empty; sending and mutating routes are unauthenticated")
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		triggers := api.Group("", middleware.BearerSecret(cfg.Automation.CronSecret))
		triggers.GET("/cron/sync", h.CronSync)
		triggers.POST("/cron/sync", h.CronSync)
		triggers.POST("/webhooks/tenants/:id/events", h.TenantWebhook)

		admin := api.Group("", middleware.BearerSecret(cfg.Automation.AdminSecret))
		admin.POST("/tenants/:id/run", h.RunTenant)
		admin.POST("/rules/:id/run", h.RunRule)
		admin.POST("/rules/:id/test", h.TestRule)

		admin.GET("/tenants/:id/rules", h.ListRules)
		admin.POST("/tenants/:id/rules", h.CreateRule)
		admin.DELETE("/rules/:id", h.DeleteRule)
		admin.GET("/tenants/:id/logs", h.ListLogs)

		admin.GET("/tenants/:id/templates", h.ListTemplates)
		admin.POST("/tenants/:id/templates/sync", h.SyncTemplates)
		admin.PUT("/tenants/:id/templates/:name/mappings", h.UpdateMappings)
	}
}

// limitBody caps request bodies at maxBytes.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
