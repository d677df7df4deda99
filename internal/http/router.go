// Package httpapi wires the HTTP transport (Gin) to the contract services,
// middleware, and route handlers. Cross-cutting concerns (tracing, request
// ids, caller identity, redacted logging, panic recovery, metrics, CORS,
// security headers, idempotency and rate limiting) are installed here in a
// fixed order.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-premium-contracts/internal/config"
	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/http/handlers"
	"github.com/tbourn/go-premium-contracts/internal/http/middleware"
	"github.com/tbourn/go-premium-contracts/internal/repo"
	"github.com/tbourn/go-premium-contracts/internal/services"
)

// maxBodyBytes caps request bodies on every route.
const maxBodyBytes = 1 << 20

// RegisterRoutes attaches all middleware and HTTP endpoints to r and mounts
// the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID, then Identity so every later layer sees the caller
//  3. RedactingLogger
//  4. Recovery (after the logger so panics are logged with context)
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before the limiter so replays bypass it)
//  8. Rate limiter (per user/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	if err := handlers.RegisterValidators(); err != nil {
		log.Error().Err(err).Msg("register binding validators")
	}

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Identity())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Admin-Token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{Scope: services.IdempotencyScopeContracts, MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			if userID == "" {
				return false, nil
			}
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	admins := services.NewAdminSet(cfg.AdminUserIDs)
	channels := domain.ParseChannels(cfg.Delivery.Channels)
	templates := services.NewTemplates(language.Indonesian)

	h := handlers.New(
		&services.ContractService{DB: db, IdempotencyTTL: cfg.IdempotencyTTL},
		&services.AdjudicationService{DB: db, Channels: channels, Templates: templates},
		&services.EntitlementService{DB: db, Admins: admins},
		&services.NotificationService{DB: db},
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/plans", h.ListPlans)
		api.GET("/premium", h.GetPremiumStatus)

		api.POST("/contracts", h.CreateContract)
		api.GET("/contracts", h.ListContracts)
		api.GET("/contracts/:id", h.GetContract)
	}

	admin := api.Group("/admin", middleware.RequireAdmin(admins))
	{
		admin.GET("/contracts/pending", h.ListPendingContracts)
		admin.GET("/contracts/:id/notifications", h.ListContractNotifications)
		admin.POST("/contracts/:id/:action", h.AdjudicateContract)

		admin.GET("/notifications", h.ListNotifications)
		admin.POST("/notifications/:id/requeue", h.RequeueNotification)
	}
}

// useCORS installs gin-contrib/cors. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed back.
func useCORS(r *gin.Engine, origins []string) {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderAdminID, middleware.HeaderIdempotencyKey,
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "ETag", "Location", "Retry-After",
			middleware.HeaderIdempotencyReplayed,
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		// Set ACAO on requests without Origin too (health checks, curl).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	base.AllowOrigins = origins
	r.Use(cors.New(base))
}

// limitBody caps the request body at maxBytes; reads past it fail.
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
