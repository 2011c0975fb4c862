package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pgvanniekerk/ezsteal/internal/logging"
)

// Server serves an admin router until it is shut down.
type Server struct {
	srv *http.Server
	log logging.Logger
}

// Start listens on the server's address and serves in the background. It returns
// the address actually bound, which differs from the configured one when the port
// is 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("admin server failed", logging.Fields{"error": err.Error()})
		}
	}()

	s.log.Info("admin server listening", logging.Fields{"addr": ln.Addr().String()})
	return ln.Addr().String(), nil
}

// Shutdown stops accepting connections and waits for active requests until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// NewServer returns a Server for router bound to addr.
func NewServer(addr string, router *gin.Engine, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}
