// Package proxy is the HTTP surface of the relay: it accepts canonical chat
// completion requests, routes each one to a backend by model name, drives the
// per-backend conversion and relays the result back to the client.
package proxy

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/upstream"
)

// Server is the main relay HTTP server.
type Server struct {
	Config         *config.ServerConfig
	httpServer     *http.Server
	upstreamClient upstream.Doer
}

const serverAccessTokenError = "Invalid or missing server access token"

// New creates a new relay server with all routes registered.
func New(cfg *config.ServerConfig) *Server {
	s := &Server{
		Config:         cfg,
		upstreamClient: upstream.NewClient(cfg),
	}

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)

	// OpenAI-compatible routes
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("POST /v1/completions", s.handleCompletions)
	mux.HandleFunc("GET /v1/models", s.handleListModels)

	// OPTIONS for CORS preflight
	mux.HandleFunc("OPTIONS /", s.handleOptions)

	handler := s.corsMiddleware(s.authMiddleware(s.verboseMiddleware(mux)))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handler,
		// ReadTimeout covers only reading the request body; 30s is plenty for any JSON payload.
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must outlast the longest backend SSE exchange.
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// ListenAndServe starts the relay server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware allows requests from any origin. The relay is designed for
// local and private-network use where a per-origin allowlist buys nothing.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqHeaders := r.Header.Get("Access-Control-Request-Headers")
		if reqHeaders == "" {
			reqHeaders = "Authorization, Content-Type, Accept"
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectedToken := ""
		if s.Config != nil {
			expectedToken = strings.TrimSpace(s.Config.AccessToken)
		}
		if expectedToken == "" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := parseBearerAuthToken(header)
		// ConstantTimeCompare prevents timing attacks that could leak the
		// expected token through response latency differences.
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			writeError(w, http.StatusForbidden, "permission_denied", "", serverAccessTokenError)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func parseBearerAuthToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func (s *Server) verboseMiddleware(next http.Handler) http.Handler {
	if !s.Config.Verbose {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
