package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// Server provides an HTTP API for reading and refreshing cards.
type Server struct {
	addr      string
	dash      model.Dashboard
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	metrics http.Handler
	refresh *rate.Limiter // nil means unlimited
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithRefreshLimit caps manual refresh requests (single card and refresh-all
// share one budget) at perSecond with the given burst. Requests over the
// limit get 429. A non-positive perSecond disables the limit.
func WithRefreshLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.refresh = nil
			return
		}
		s.refresh = rate.NewLimiter(rate.Limit(perSecond), max(1, burst))
	}
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, dash model.Dashboard, opts ...Option) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:      addr,
		dash:      dash,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/cards", s.handleListCards)
	api.GET("/cards/:id", s.handleGetCard)
	api.POST("/cards/:id/refresh", s.limitRefresh, s.handleRefreshCard)
	api.DELETE("/cards/:id", s.handleRemoveCard)
	api.POST("/refresh", s.limitRefresh, s.handleRefreshAll)
	api.GET("/history", s.handleHistory)
	api.GET("/summary", s.handleSummary)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

// limitRefresh rejects refresh requests beyond the configured rate.
func (s *Server) limitRefresh(c *gin.Context) {
	if s.refresh == nil {
		c.Next()
		return
	}
	if !s.refresh.Allow() {
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "refresh rate limit exceeded"})
		return
	}
	c.Next()
}

// Start listens and serves in the background. Serve errors are dropped; use
// Listen and Serve to observe them.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	go s.Serve()
	return nil
}

// Listen binds the API address so bind failures surface before serving.
func (s *Server) Listen() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Refresh endpoints wait for card updates.
		WriteTimeout: 120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startTime = time.Now()
	return nil
}

// Serve handles requests on the bound listener until Stop. It returns nil
// after a graceful stop.
func (s *Server) Serve() error {
	if s.server == nil || s.listener == nil {
		return errors.New("httpserver: Serve called before Listen")
	}
	if err := s.server.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the HTTP server. In-flight refreshes see their
// request context cancelled.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	cards, err := s.dash.ListCards()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read cards"})
		return
	}
	outcomes, err := s.dash.OutcomeCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count outcomes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"cards":    len(cards),
		"outcomes": outcomes,
	})
}

func (s *Server) handleListCards(c *gin.Context) {
	cards, err := s.dash.ListCards()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (s *Server) handleGetCard(c *gin.Context) {
	id := c.Param("id")
	v, ok, err := s.dash.GetCard(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found: " + id})
		return
	}
	c.JSON(http.StatusOK, v)
}

// handleRefreshCard answers 200 whether or not the update succeeded; the
// returned status carries the failure.
func (s *Server) handleRefreshCard(c *gin.Context) {
	id := c.Param("id")
	v, ok, err := s.dash.RefreshCard(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found: " + id})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleRefreshAll(c *gin.Context) {
	if err := s.dash.RefreshAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	cards, err := s.dash.ListCards()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (s *Server) handleRemoveCard(c *gin.Context) {
	id := c.Param("id")
	ok, err := s.dash.RemoveCard(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found: " + id})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := model.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	outcomes, err := s.dash.History(c.Query("card"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	c.JSON(http.StatusOK, outcomes)
}

func (s *Server) handleSummary(c *gin.Context) {
	summary, err := s.dash.OutcomeSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
