// Package relay serves the agent run endpoint over HTTP, forwarding requests
// upstream and re-emitting the decoded event stream to browser clients.
package relay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/iksnae/cortex-session/internal"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Options configures a relay Server
type Options struct {
	Transport   internal.Transport
	RemoveSQL   bool
	CORSOrigins []string
}

// Server is the relay HTTP service
type Server struct {
	router  *gin.Engine
	handler http.Handler
	opts    Options
}

// NewServer creates a relay server with its routes registered
func NewServer(opts Options) *Server {
	r := gin.New()
	r.Use(
		gin.LoggerWithWriter(internal.LogWriter(internal.LogLevelDebug)),
		gin.RecoveryWithWriter(internal.LogWriter(internal.LogLevelError)),
	)

	s := &Server{router: r, opts: opts}
	s.registerRoutes()

	policy := cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	}
	if len(opts.CORSOrigins) == 0 {
		// an empty list would allow every origin
		policy.AllowOriginFunc = func(string) bool { return false }
	}
	s.handler = cors.New(policy).Handler(r)
	return s
}

// Handler returns the routes wrapped in the CORS policy
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/health", s.health)

	api := s.router.Group("/api/agent")
	api.POST("/run", s.runAgent)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		internal.LogInfo("relay listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		internal.LogInfo("relay shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) root(c *gin.Context) {
	internal.LogDebug("root endpoint accessed")
	c.JSON(http.StatusOK, gin.H{"message": "Cortex Agent API", "status": "running"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": Version})
}
