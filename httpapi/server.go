// Package httpapi serves the schema authoring API: URL classification,
// selector generation and testing, and the schema registry.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/leadsync/auth"
	"github.com/hazyhaar/leadsync/kit"
	"github.com/hazyhaar/leadsync/schema"
	"github.com/hazyhaar/leadsync/selector"
)

// maxBody bounds request bodies. Pages posted for selector generation are
// the largest.
const maxBody = 8 << 20

// Config wires a Server.
type Config struct {
	Registry    *schema.Registry
	Synthesizer *selector.Synthesizer
	// JWTSecret enables bearer/cookie authentication. Empty disables it.
	JWTSecret []byte
	// RequireAuth rejects anonymous schema mutations.
	RequireAuth bool
	// MCP, when set, is mounted at /mcp over streamable HTTP.
	MCP    *mcp.Server
	Logger *slog.Logger
}

// Server is the authoring API.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Server. Registry is required.
func New(cfg Config) *Server {
	if cfg.Synthesizer == nil {
		cfg.Synthesizer = selector.New(selector.WithLogger(cfg.Logger))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(transport)
	if len(s.cfg.JWTSecret) > 0 {
		r.Use(auth.Middleware(s.cfg.JWTSecret))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Post("/selectors/generate", s.handleGenerate)
		r.Post("/selectors/test", s.handleTest)

		r.Route("/schemas", func(r chi.Router) {
			r.Get("/", s.handleSchemaMap)
			r.Get("/{platform}/{pageType}", s.handleForPlatform)
			r.Get("/{platform}/{pageType}/export", s.handleExport)
			r.Get("/{platform}/{pageType}/history", s.handleHistory)
			r.Get("/elements/{id}", s.handleGetElement)

			r.Group(func(r chi.Router) {
				if s.cfg.RequireAuth {
					r.Use(auth.RequireAuth)
				}
				r.Post("/import", s.handleImport)
				r.Post("/elements", s.handleCreateElement)
				r.Put("/elements/{id}", s.handleUpdateElement)
				r.Delete("/elements/{id}", s.handleDeleteElement)
			})
		})
	})

	if s.cfg.MCP != nil {
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.cfg.MCP }, nil)
		r.Handle("/mcp", h)
		r.Handle("/mcp/*", h)
	}
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("httpapi: request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func transport(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeStoreError maps registry errors to status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "problems": verr.Problems})
	case errors.Is(err, schema.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		s.logger.Error("httpapi: registry", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}
