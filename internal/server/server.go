package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"wsrelay/internal/config"
	"wsrelay/internal/metrics"
	"wsrelay/internal/relay"
)

// Server exposes the relay over HTTP: the WebSocket endpoint on "/", plus
// health and metrics routes.
type Server struct {
	engine   *gin.Engine
	http     *http.Server
	manager  *relay.Manager
	upgrader *websocket.Upgrader
	logger   *slog.Logger

	clientOptions ClientOptions

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// New builds the server. reg may be nil, in which case /metrics is not served.
func New(cfg *config.Config, manager *relay.Manager, reg *prometheus.Registry, logger *slog.Logger) *Server {
	engine := gin.New()

	s := &Server{
		engine:   engine,
		manager:  manager,
		upgrader: newUpgrader(cfg.AllowsAnyOrigin(), cfg.AllowedOrigins),
		logger:   logger,
		clientOptions: ClientOptions{
			SendBufferSize: cfg.SendBufferSize,
			MaxMessageSize: cfg.MaxMessageSize,
			RateLimit:      cfg.MessageRateLimit,
			RateBurst:      cfg.MessageRateBurst,
		},
		clients: make(map[*Client]struct{}),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.registerRoutes(cfg.MetricsEnabled, reg)
	return s
}

func (s *Server) registerRoutes(metricsEnabled bool, reg *prometheus.Registry) {
	s.engine.Use(s.requestLogger())
	s.engine.Use(gin.Recovery())

	s.engine.GET("/", s.handleWebSocket)
	s.engine.GET("/healthz", s.handleHealth)
	if metricsEnabled && reg != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			"method", c.Request.Method,
			"uri", c.Request.URL.RequestURI(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.manager.ClientCount(),
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting relay server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve on %s: %w", s.http.Addr, err)
	}
	return nil
}

// Shutdown stops accepting requests and closes every open WebSocket.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.closeClients()
	return err
}

func (s *Server) track(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.Close()
	}
	s.logger.Info("closed client connections", "count", len(s.clients))
}
