// Package server is the dev server façade: it answers a request path with
// the content of the asset that serves it, computed as an engine task.
package server

import (
	"context"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"assetserve/internal/asset"
	"assetserve/internal/bridge"
	"assetserve/internal/domain"
	"assetserve/internal/engine"
	"assetserve/internal/fallback"
	"assetserve/internal/handler"
	"assetserve/internal/metrics"
	"assetserve/internal/resolve"
)

const (
	// DefaultAddr is the loopback address the server binds when none is set
	DefaultAddr = "127.0.0.1:3000"
	// IndexDocument is appended to directory requests
	IndexDocument = "index.html"
)

// Config is fixed at construction
type Config struct {
	// RootPath is the slash-separated document root asset paths are
	// compared against
	RootPath string
	// Root is the entry asset of the graph
	Root asset.Asset
	// Fallback answers unmatched paths; nil means fallback.None
	Fallback fallback.Handler
	// Addr overrides DefaultAddr
	Addr string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger for request and lifecycle messages
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records requests and delivery failures
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithJournal appends every completed request to j
func WithJournal(j handler.Journal) Option {
	return func(s *Server) {
		s.journal = j
	}
}

// Server answers requests from the asset graph
type Server struct {
	cfg     Config
	engine  *engine.Engine
	bridge  *bridge.Bridge
	log     *zap.Logger
	metrics *metrics.Metrics
	journal handler.Journal
}

// New creates a server computing responses on e
func New(cfg Config, e *engine.Engine, opts ...Option) *Server {
	if cfg.Fallback == nil {
		cfg.Fallback = fallback.None()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{
		cfg:    cfg,
		engine: e,
		log:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	s.log = s.log.Named("server")
	s.bridge = bridge.New(e, s.log, s.metrics)
	return s
}

// Addr returns the address Listen binds
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Normalize turns a request path into the path resolved against the graph:
// the leading slash is dropped and directory requests get the index
// document appended
func Normalize(requestPath string) string {
	p := strings.TrimPrefix(requestPath, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		p += IndexDocument
	}
	return p
}

// HandleRequest computes the response for a request path. The error is
// non-nil only when ctx ends first.
//
// Resolutions that found nothing are not kept, so requests for arbitrary
// missing paths do not accumulate in the engine.
func (s *Server) HandleRequest(ctx context.Context, requestPath string) (domain.Response, error) {
	key := s.resolveKey(Normalize(requestPath))
	var missed atomic.Bool
	resp, err := s.bridge.Run(ctx, func(c *engine.Context) (domain.Response, error) {
		return s.respond(c, key, requestPath, &missed)
	})
	if err == nil && missed.Load() {
		s.engine.Forget(key)
	}
	return resp, err
}

func (s *Server) respond(c *engine.Context, key, requestPath string, missed *atomic.Bool) (domain.Response, error) {
	normalized := Normalize(requestPath)

	result, err := engine.GetConsistent(c, key, func(c *engine.Context) (resolve.Result, error) {
		return resolve.Find(c, s.cfg.RootPath, s.cfg.Root, normalized)
	})
	if err != nil {
		return domain.Response{}, err
	}
	missed.Store(!result.Found())

	if result.Found() {
		a := result.Asset
		content, err := engine.GetConsistent(c, "content:"+a.Path(), a.Content)
		if err != nil {
			return domain.Response{}, err
		}
		if content != nil && len(content.Bytes) > 0 {
			return domain.OK(content.Bytes, contentType(normalized, content.Bytes)), nil
		}
	}

	if body, ok := s.cfg.Fallback(requestPath); ok {
		return domain.OK(body, contentType("", body)), nil
	}
	return domain.NotFound(), nil
}

func (s *Server) resolveKey(normalized string) string {
	return "resolve:" + s.cfg.RootPath + ":" + normalized
}

func contentType(name string, body []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(body)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		write(w, domain.MethodNotAllowed())
		return
	}

	resp, err := s.HandleRequest(r.Context(), r.URL.Path)
	if err != nil {
		s.log.Debug("request abandoned", zap.String("path", r.URL.Path), zap.Error(err))
		return
	}
	write(w, resp)
}

func write(w http.ResponseWriter, resp domain.Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// Graph returns the assets reachable from the entry asset that lie inside
// the document root, with their references
func (s *Server) Graph(ctx context.Context) (*domain.Graph, error) {
	var graph *domain.Graph
	resp, err := s.bridge.Run(ctx, func(c *engine.Context) (domain.Response, error) {
		g, err := s.graph(c)
		if err != nil {
			return domain.Response{}, err
		}
		graph = g
		return domain.OK(nil, ""), nil
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, asset.ErrContentUnavailable
	}
	return graph, nil
}

func (s *Server) graph(c *engine.Context) (*domain.Graph, error) {
	graph := domain.NewGraph(s.cfg.RootPath)
	if s.cfg.Root == nil {
		return graph, nil
	}

	all, err := asset.TransitiveClosure(c, s.cfg.Root)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		from, ok := asset.PathTo(s.cfg.RootPath, a.Path())
		if !ok {
			continue
		}
		content, err := a.Content(c)
		if err != nil {
			return nil, err
		}
		size := 0
		if content != nil {
			size = len(content.Bytes)
		}
		graph.AddNode(from, content != nil, size)

		refs, err := a.References(c)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if to, ok := asset.PathTo(s.cfg.RootPath, ref.Path()); ok {
				graph.AddEdge(from, to)
			}
		}
	}
	return graph, nil
}
