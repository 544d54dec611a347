package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Iron-Ham/borrowledger/internal/logging"
)

// Server exposes a Recorder over HTTP at /metrics, with a /healthz probe.
type Server struct {
	srv    *http.Server
	logger *logging.Logger
}

// NewRouter returns the gin engine serving rec. When allowOrigins is not
// empty, browsers from those origins may read the endpoints ("*" allows any).
func NewRouter(rec *Recorder, allowOrigins ...string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if len(allowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: allowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(rec.Handler()))
	return router
}

// NewServer creates a Server for rec listening on addr. allowOrigins is
// passed to NewRouter.
func NewServer(addr string, rec *Recorder, logger *logging.Logger, allowOrigins ...string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(rec, allowOrigins...),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listen address and serves in the background. It returns
// the bound address, which differs from the configured one when the port
// was 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	s.logger.Info("metrics server listening", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
