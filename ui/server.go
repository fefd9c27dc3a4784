package ui

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"sheetview/internal/session"
	"sheetview/ui/middleware"

	"github.com/gin-gonic/gin"
)

// Config tunes the HTTP server
type Config struct {
	GinMode        string
	MaxUploadBytes int64
}

// Server exposes a session over HTTP
type Server struct {
	router     *gin.Engine
	session    *session.Session
	config     Config
	httpServer *http.Server
}

// NewServer creates a new web server instance
func NewServer(sess *session.Session, cfg Config) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 * 1024 * 1024
	}

	s := &Server{
		router:  gin.New(),
		session: sess,
		config:  cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and for embedding in another server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/dataset")
	api.POST("", middleware.LimitBody(s.config.MaxUploadBytes+1<<20), s.handleFileUpload)
	api.GET("", s.handleDatasetState)
	api.DELETE("", s.handleReset)
	api.PUT("/query", s.handleQuery)
	api.POST("/sort/:field", s.handleToggleSort)
	api.POST("/columns/:field/toggle", s.handleToggleColumn)
	api.GET("/columns/:field/profile", s.handleProfile)
	api.GET("/window", s.handleWindow)
	api.POST("/measure", s.handleMeasure)
	api.GET("/records", s.handleRecords)
}

// Start serves on addr until Shutdown is called. Calling Shutdown first makes Start return
// at once.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("Starting sheetview on http://%s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
