// Package httpapi serves the evaluation API over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address     string
	evaluations services.Evaluations
	logger      logging.Logger
	jwtSecret   []byte
}

func NewHTTPServer(a string, l logging.Logger, es services.Evaluations, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:     a,
		logger:      l.With("module", "http_server"),
		evaluations: es,
		jwtSecret:   []byte(secretKey),
	}
}

// Router builds the gin engine with every route registered.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handler{evaluations: s.evaluations, logger: s.logger}
	v1 := r.Group("/api/v1", s.authenticate())

	v1.POST("/evaluations", h.submit)
	v1.GET("/evaluations/:id/status", h.status)
	v1.GET("/evaluations/:id/history", h.history)
	v1.GET("/evaluations/:id/timeline", h.timeline)
	v1.POST("/evaluations/:id/transitions", h.transition)
	v1.POST("/evaluations/:id/assignments", h.assign)
	v1.POST("/documents/:id/ingest", h.ingest)
	v1.GET("/rules/:code", h.rules)
	v1.DELETE("/rules/:code/cache", h.invalidateRules)

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
