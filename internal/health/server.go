// Package health serves the liveness probe, the prometheus scrape endpoint and a read-only
// view of recent remediations.
package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second

	defaultRemediationLimit = 50
	maxRemediationLimit     = 500
)

// RemediationLog reads the audit trail
type RemediationLog interface {
	RecentRemediations(ctx context.Context, limit int) ([]models.RemediationEvent, error)
}

// RemediationView is one entry of GET /remediations
type RemediationView struct {
	SourceKind string `json:"source_kind"`
	SourceID   string `json:"source_id"`
	ItemID     string `json:"item_id"`
	AuthorID   string `json:"author_id,omitempty"`
	Outcome    string `json:"outcome"`
	State      string `json:"state"`
	Error      string `json:"error,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Response is the body of GET /health
type Response struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Server exposes /health and /metrics
type Server struct {
	cfg    config.HealthConfig
	router *gin.Engine
	server *http.Server
	now    func() time.Time
	log    RemediationLog
	logger zerolog.Logger
}

// Option customizes a Server
type Option func(*Server)

// WithRemediationLog serves GET /remediations from log
func WithRemediationLog(log RemediationLog) Option {
	return func(s *Server) { s.log = log }
}

// NewServer builds the router. metricsHandler may be nil, in which case /metrics is not served.
func NewServer(cfg config.HealthConfig, metricsHandler http.Handler, logger zerolog.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		router: gin.New(),
		now:    time.Now,
		logger: logger.With().Str("component", "HealthServer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router.Use(gin.Recovery())
	s.router.GET("/health", s.handleHealth)
	s.router.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	if metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(metricsHandler))
	}
	if s.log != nil {
		s.router.GET("/remediations", s.handleRemediations)
	}

	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Service:   s.cfg.ServiceName,
		Version:   s.cfg.Version,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

// handleRemediations lists the newest audit entries; ?limit= bounds the count
func (s *Server) handleRemediations(c *gin.Context) {
	limit := defaultRemediationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRemediationLimit)
	}

	events, err := s.log.RecentRemediations(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read remediation log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remediation log unavailable"})
		return
	}

	views := make([]RemediationView, 0, len(events))
	for _, e := range events {
		views = append(views, RemediationView{
			SourceKind: string(e.Source.Kind),
			SourceID:   e.Source.ID,
			ItemID:     e.ItemID,
			AuthorID:   e.AuthorID,
			Outcome:    string(e.Result.Outcome),
			State:      string(e.Result.State),
			Error:      e.Error,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, views)
}

// Start binds the listener and serves in the background. Bind errors are returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Health server listening")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Health server stopped unexpectedly")
		}
	}()
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
