// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, error handling, panic
// recovery, metrics, CORS, security headers, compression and idempotency.
//
// Design goals:
//   - One place turns failures into responses (middleware.ErrorHandler)
//   - Observability first (OTel + Prometheus)
//   - Deterministic, minimal router setup; all dependencies injected
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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-posts-backend/docs" // registers the OpenAPI document
	"github.com/tbourn/go-posts-backend/internal/config"
	"github.com/tbourn/go-posts-backend/internal/domain"
	"github.com/tbourn/go-posts-backend/internal/http/handlers"
	"github.com/tbourn/go-posts-backend/internal/http/middleware"
	"github.com/tbourn/go-posts-backend/internal/repo"
	"github.com/tbourn/go-posts-backend/internal/services"
)

// postRepoShim adapts the repository free functions to the services.PostRepo
// interface expected by the PostService.
type postRepoShim struct{}

func (postRepoShim) CreatePost(ctx context.Context, db *gorm.DB, title, content, author string) (*domain.Post, error) {
	return repo.CreatePost(ctx, db, title, content, author)
}

func (postRepoShim) ListPosts(ctx context.Context, db *gorm.DB) ([]domain.Post, error) {
	return repo.ListPosts(ctx, db)
}

func (postRepoShim) GetPost(ctx context.Context, db *gorm.DB, id int64) (*domain.Post, error) {
	return repo.GetPost(ctx, db, id)
}

func (postRepoShim) UpdatePost(ctx context.Context, db *gorm.DB, p *domain.Post) (*domain.Post, error) {
	return repo.UpdatePost(ctx, db, p)
}

func (postRepoShim) DeletePost(ctx context.Context, db *gorm.DB, id int64) error {
	return repo.DeletePost(ctx, db, id)
}

func (postRepoShim) SearchPosts(ctx context.Context, db *gorm.DB, q string) ([]domain.Post, error) {
	return repo.SearchPosts(ctx, db, q)
}

// idempotencyStore persists Idempotency-Key records through the repo
// package, with a fixed time-to-live.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup implements handlers.IdempotencyStore.
func (s idempotencyStore) Lookup(ctx context.Context, key string, now time.Time) (int64, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, key, now)
	switch {
	case repo.IsNotFound(err):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return rec.PostID, true, nil
}

// Remember implements handlers.IdempotencyStore. A concurrent request that
// stored the same key first wins; that is not an error.
func (s idempotencyStore) Remember(ctx context.Context, key string, postID int64, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, key, postID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// exists adapts Lookup to middleware.IdempotencyLookup.
func (s idempotencyStore) exists(ctx context.Context, key string, now time.Time) (bool, error) {
	_, found, err := s.Lookup(ctx, key, now)
	return found, err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the post API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: access log with PII scrubbing, request-scoped logger
//  4. Metrics: observes the final status, error envelopes included
//  5. Compression, CORS and security headers, so error bodies get them too
//  6. ErrorHandler: sees every error recorded below it
//  7. Recovery: panics become errors for ErrorHandler
//  8. Body size limiter
//
// The Idempotency-Key validator is attached to POST /posts alone.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	if cfg.OTEL.Enabled {
		r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LogOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Metrics())

	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	r.Use(corsMiddleware(cfg.CORS))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptionsFrom(cfg.Security)))

	r.Use(middleware.ErrorHandler(middleware.ErrorOptions{Mode: cfg.Mode}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	// Fallbacks
	r.NoRoute(handlers.NoRoute)
	r.NoMethod(handlers.NoMethod)

	// Routes are registered after every Use so they inherit the full chain.
	r.GET("/health", healthHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	idem := idempotencyStore{db: db, ttl: cfg.IdempotencyTTL}
	postSvc := services.NewPostService(db, postRepoShim{})
	h := handlers.New(postSvc, idem)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Only creation is idempotent; other routes ignore the header.
		api.POST("/posts",
			middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idem.exists),
			h.CreatePost)
		api.GET("/posts", h.ListPosts)
		api.GET("/posts/search", h.SearchPosts)
		api.GET("/posts/:id", h.GetPost)
		api.PUT("/posts/:id", h.UpdatePost)
		api.DELETE("/posts/:id", h.DeletePost)
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// only the listed ones.
func corsMiddleware(cc config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", handlers.HeaderIdempotencyReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(cc.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cc.AllowedOrigins
	}
	return cors.New(c)
}

// healthHandler reports liveness plus storage reachability. An unreachable
// database is reported through the error pipeline as a 503.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := repo.Ping(ctx, db); err != nil {
			handlers.Abort(c, middleware.NewStatusError(http.StatusServiceUnavailable, middleware.MsgUnavailable, err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// fail when the handler reads the body. A non-positive maxBytes disables it.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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
