package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/vivahvows/internal/auth"
	"github.com/oggyb/vivahvows/internal/config"
	"github.com/oggyb/vivahvows/internal/logger"
)

// NewEngine builds the gin engine with logging middleware and mounts
// all registrars under /api. Public registrars (auth) skip the auth
// middleware; everything else requires a bearer token.
func NewEngine(cfg *config.Config, public []Registrar, protected []Registrar) *gin.Engine {
	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	for _, r := range public {
		r.RegisterRoutes(api)
	}

	secured := api.Group("")
	secured.Use(auth.Middleware(cfg))
	for _, r := range protected {
		r.RegisterRoutes(secured)
	}

	return engine
}

// Start runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func Start(ctx context.Context, cfg *config.Config, engine *gin.Engine) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs each request through the global slog logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.L().Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
