// Package server exposes canvas snapshots over a read-only HTTP API for
// inspectors and other external panels.
//
// Routes:
//
//	GET /healthz              liveness and snapshot version
//	GET /api/graph            full snapshot as JSON
//	GET /api/graph.dot        snapshot as Graphviz DOT
//	GET /api/graph.svg        snapshot rendered to SVG
//	GET /api/selection        selected nodes and edges
//	GET /api/nodes/{handle}   one node
//
// JSON and DOT responses carry an ETag derived from the snapshot version.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/patchcanvas/pkg/canvas"
	"github.com/matzehuels/patchcanvas/pkg/patch"
	"github.com/matzehuels/patchcanvas/pkg/render/nodelink"
)

// Server serves snapshots from a [Store].
type Server struct {
	store  *Store
	logger *log.Logger
	router chi.Router
}

// New creates a server reading from store. A nil logger means log.Default().
func New(store *Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{store: store, logger: logger.With("component", "server")}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(api chi.Router) {
		api.Get("/graph", s.handleGraph)
		api.Get("/graph.dot", s.handleDOT)
		api.Get("/graph.svg", s.handleSVG)
		api.Get("/selection", s.handleSelection)
		api.Get("/nodes/{handle}", s.handleNode)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, when not nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if ready != nil {
		ready(ln.Addr())
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"bytes", ww.BytesWritten(), "duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": s.store.Version()})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap, version := s.store.Load()
	if notModified(w, r, version) {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	snap, version := s.store.Load()
	if notModified(w, r, version) {
		return
	}
	opts := nodelink.Options{Detailed: r.URL.Query().Get("detailed") == "true"}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, nodelink.ToDOT(snap, opts))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	snap, version := s.store.Load()
	if notModified(w, r, version) {
		return
	}
	opts := nodelink.Options{Detailed: r.URL.Query().Get("detailed") == "true"}
	svg, err := nodelink.Render(r.Context(), snap, opts)
	if err != nil {
		s.logger.Warn("render failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	snap, version := s.store.Load()
	if notModified(w, r, version) {
		return
	}
	writeJSON(w, http.StatusOK, selectionOf(snap, version))
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	h, err := patch.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid handle"})
		return
	}
	snap, _ := s.store.Load()
	i := slices.IndexFunc(snap.Nodes, func(n canvas.NodeView) bool { return n.Handle == h })
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "node not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap.Nodes[i])
}

func etag(version uint64) string {
	return `"v` + strconv.FormatUint(version, 10) + `"`
}

// notModified sets the ETag and answers 304 when the client already has
// this version.
func notModified(w http.ResponseWriter, r *http.Request, version uint64) bool {
	tag := etag(version)
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
