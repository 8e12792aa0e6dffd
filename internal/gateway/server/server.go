package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"orderdesk/internal/gateway/handler"
	"orderdesk/internal/gateway/middleware"
)

// NewMux registers the gateway endpoints and wraps them with CORS.
func NewMux(svc *handler.Service) http.Handler {
	mux := http.NewServeMux()
	svc.Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return middleware.CORS(mux)
}

type Server struct {
	httpServer *http.Server
}

func New(port string, h http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    port,
			Handler: h2c.NewHandler(h, &http2.Server{}),
		},
	}
}

func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
