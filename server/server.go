// SPDX-License-Identifier: EPL-2.0

// Package server is the local HTTP and WebSocket API a browser UI binds to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ik5/coughcap/inference"
	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/recording"
)

// Recorder is the part of *recording.Controller the API drives.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Clear() error
	Snapshot() recording.Snapshot
	Subscribe() (<-chan recording.Snapshot, func())
	Submit(ctx context.Context) (*inference.Prediction, error)
}

type Submitter interface {
	Submit(ctx context.Context, f media.File) (*inference.Prediction, error)
}

type Previews interface {
	Get(handle string) (media.File, bool)
}

type Options struct {
	Addr           string
	Recorder       Recorder
	Submitter      Submitter
	Previews       Previews
	Gatherer       prometheus.Gatherer
	MetricsPath    string
	AllowedOrigins []string
	// MaxUploadBytes caps the request body of /api/upload. The validator
	// still applies its own limit to the file itself.
	MaxUploadBytes  int64
	StopTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Log             *zap.Logger
}

type Server struct {
	opts     Options
	engine   *gin.Engine
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		opts: opts,
		log:  opts.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
	s.engine = s.routes()

	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.opts.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	if len(s.opts.AllowedOrigins) > 0 {
		cfg := cors.Config{
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}
		if slices.Contains(s.opts.AllowedOrigins, "*") {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = s.opts.AllowedOrigins
		}
		r.Use(cors.New(cfg))
	}

	api := r.Group("/api")
	{
		rec := api.Group("/recording")
		rec.GET("", s.getRecording)
		rec.POST("/start", s.startRecording)
		rec.POST("/stop", s.stopRecording)
		rec.POST("/clear", s.clearRecording)
		rec.POST("/submit", s.submitRecording)
		rec.GET("/events", s.recordingEvents)

		api.POST("/upload", s.upload)
	}

	r.GET("/preview/:handle", s.preview)

	if s.opts.Gatherer != nil {
		r.GET(s.opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message(err)})
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	if slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
