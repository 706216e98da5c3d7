// Package server answers gene queries over HTTP from an in-memory snapshot
// of the curated matrices.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inodb/tnbc-explorer/internal/output"
	"github.com/inodb/tnbc-explorer/internal/query"
	"github.com/inodb/tnbc-explorer/internal/storage"
)

// Server serves gene queries. The snapshot is replaced atomically on reload,
// so a request sees either the old or the new pair of matrices.
type Server struct {
	store    storage.Store
	snap     atomic.Pointer[query.Snapshot]
	geneType func(gene string) string
	logger   *zap.Logger
	router   *gin.Engine
}

// New creates a server reading curated matrices from store. No snapshot is
// loaded until Reload is called.
func New(store storage.Store) *Server {
	s := &Server{store: store, logger: zap.NewNop()}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())
	router.GET("/healthcheck", s.healthCheckHandler)
	router.GET("/genes/:symbol", s.geneHandler)
	router.POST("/reload", s.reloadHandler)
	s.router = router
	return s
}

// SetLogger sets the logger for request and reload messages.
func (s *Server) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SetGeneTypes configures the gene type lookup passed to each query.
func (s *Server) SetGeneTypes(lookup func(gene string) string) {
	s.geneType = lookup
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Snapshot returns the current snapshot, or nil if none is loaded.
func (s *Server) Snapshot() *query.Snapshot {
	return s.snap.Load()
}

// Reload loads a fresh snapshot and swaps it in. On error the previous
// snapshot stays in place.
func (s *Server) Reload(ctx context.Context) error {
	snap, err := query.LoadSnapshot(ctx, s.store)
	if err != nil {
		return err
	}
	s.snap.Store(snap)
	s.logger.Info("loaded snapshot",
		zap.Int("genes", snap.TNBC.NumGenes()),
		zap.Int("tnbc_samples", snap.TNBC.NumSamples()),
		zap.Int("normal_samples", snap.Normal.NumSamples()))
	return nil
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) healthCheckHandler(c *gin.Context) {
	resp := gin.H{"status": "healthy", "loaded": false}
	if snap := s.Snapshot(); snap != nil {
		resp["loaded"] = true
		resp["loaded_at"] = snap.LoadedAt
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) geneHandler(c *gin.Context) {
	snap := s.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": query.ErrMissingCuratedData.Error()})
		return
	}

	engine := query.NewEngine(snap)
	engine.SetLogger(s.logger)
	if s.geneType != nil {
		engine.SetGeneTypes(s.geneType)
	}

	result, err := engine.Query(c.Param("symbol"))
	if err != nil {
		if errors.Is(err, query.ErrUnknownGene) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, output.NewResultJSON(result))
}

func (s *Server) reloadHandler(c *gin.Context) {
	if err := s.Reload(c.Request.Context()); err != nil {
		s.logger.Warn("reload failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, query.ErrMissingCuratedData) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	snap := s.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":         "reloaded",
		"loaded_at":      snap.LoadedAt,
		"genes":          snap.TNBC.NumGenes(),
		"tnbc_samples":   snap.TNBC.NumSamples(),
		"normal_samples": snap.Normal.NumSamples(),
	})
}
