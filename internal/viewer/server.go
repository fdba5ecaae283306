// Package viewer serves a read-only HTTP view over the result file: an HTML
// summary, the raw CSV download, and JSON stats. The file is read on every
// request.
package viewer

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/shpitdev/call-analyzer/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

const shutdownTimeout = 5 * time.Second

type Options struct {
	// StorePath is the result CSV to serve.
	StorePath string
	Logger    *slog.Logger
}

type Server struct {
	storePath string
	logger    *slog.Logger
	engine    *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.StorePath == "" {
		return nil, errors.New("viewer: store path is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(opts.Logger))
	engine.SetHTMLTemplate(tmpl)

	s := &Server{storePath: opts.StorePath, logger: opts.Logger, engine: engine}
	engine.GET("/", s.index)
	engine.GET("/download", s.download)
	engine.GET("/status", s.status)
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("viewer listening", "addr", addr, "store", s.storePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type indexData struct {
	FileExists bool
	FileName   string
	Stats      Stats
}

// load reads the store. exists is false when the file is absent.
func (s *Server) load() (stats Stats, exists bool, err error) {
	info, err := os.Stat(s.storePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stats{}, false, nil
		}
		return Stats{}, true, err
	}
	t, err := store.ReadFile(s.storePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stats{}, false, nil
		}
		return Stats{}, true, err
	}
	return ComputeStats(t, info.ModTime()), true, nil
}

func (s *Server) index(c *gin.Context) {
	stats, exists, err := s.load()
	if err != nil {
		s.logger.Warn("read result file failed", "path", s.storePath, "error", err)
		c.String(http.StatusInternalServerError, "Error al leer el archivo: %s", err.Error())
		return
	}
	c.HTML(http.StatusOK, "index.html", indexData{
		FileExists: exists,
		FileName:   filepath.Base(s.storePath),
		Stats:      stats,
	})
}

func (s *Server) download(c *gin.Context) {
	if _, err := os.Stat(s.storePath); err != nil {
		c.String(http.StatusNotFound, "Archivo no encontrado. Ejecuta primero el análisis.")
		return
	}
	c.FileAttachment(s.storePath, filepath.Base(s.storePath))
}

type statusResponse struct {
	FileExists         bool           `json:"file_exists"`
	TotalCalls         int            `json:"total_calls"`
	ProcessedCalls     int            `json:"processed_calls"`
	UniqueStatuses     int            `json:"unique_statuses"`
	LastUpdated        string         `json:"last_updated"`
	StatusDistribution map[string]int `json:"status_distribution"`
}

func (s *Server) status(c *gin.Context) {
	stats, exists, err := s.load()
	if err != nil {
		s.logger.Warn("read result file failed", "path", s.storePath, "error", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusOK, gin.H{"file_exists": false})
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		FileExists:         true,
		TotalCalls:         stats.TotalCalls,
		ProcessedCalls:     stats.ProcessedCalls,
		UniqueStatuses:     stats.UniqueStatuses,
		LastUpdated:        stats.LastUpdated,
		StatusDistribution: stats.StatusDistribution,
	})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"client", c.ClientIP(),
		)
	}
}
