// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/usecases"
)

// Server is the HTTP server for the support chat and recommendations API.
type Server struct {
	chat      *usecases.ChatUseCase
	recommend *usecases.RecommendUseCase
	audit     ports.AuditLog
	log       logrus.FieldLogger
	addr      string
	origins   map[string]bool
	upgrader  websocket.Upgrader
	schemas   map[string]*jsonschema.Schema
	now       func() time.Time
}

// NewServer creates a new HTTP server. audit may be nil; an empty
// allowedOrigins list accepts every origin.
func NewServer(
	chat *usecases.ChatUseCase,
	recommend *usecases.RecommendUseCase,
	audit ports.AuditLog,
	log logrus.FieldLogger,
	addr string,
	allowedOrigins []string,
) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	s := &Server{
		chat:      chat,
		recommend: recommend,
		audit:     audit,
		log:       log,
		addr:      addr,
		origins:   origins,
		schemas:   buildSchemas(),
		now:       time.Now,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the routed handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.chatHandler).Methods(http.MethodPost)
	api.HandleFunc("/n8n-webhook", s.chatHandler).Methods(http.MethodPost)
	api.HandleFunc("/recommendations", s.recommendationsHandler).Methods(http.MethodPost)
	api.HandleFunc("/recommendations/refresh", s.refreshHandler).Methods(http.MethodPost)
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	api.HandleFunc("/schema", s.schemaHandler).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.wsHandler).Methods(http.MethodGet)

	return s.corsMiddleware(&logHandler{log: s.log, next: r})
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second, // outlives the recommendations budget
	}

	s.log.WithField("addr", s.addr).Info("supportdesk server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}
