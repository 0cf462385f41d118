// Package server exposes the site over HTTP.
package server

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/metrics"
	"github.com/kalmas/kalmas-net/internal/router"
	"github.com/kalmas/kalmas-net/internal/view"
	"github.com/kalmas/kalmas-net/internal/web"
)

// IDGenerator produces request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Config tunes the HTTP surface.
type Config struct {
	SiteName       string
	DefaultSlug    string
	SnapshotDir    string
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the view controllers and content store.
type Server struct {
	router   chi.Router
	routes   *router.Router
	renderer *web.Renderer
	posts    view.PostSource
	index    *view.IndexController
	blog     *view.BlogController
	fetcher  content.Fetcher
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Server with middleware and routes.
func New(
	cfg Config,
	posts view.PostSource,
	profiles view.ProfileSource,
	fetcher content.Fetcher,
	renderer *web.Renderer,
	ids IDGenerator,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		routes:   router.New(),
		renderer: renderer,
		posts:    posts,
		index:    view.NewIndexController(profiles),
		blog:     view.NewBlogController(posts, cfg.DefaultSlug, logger.Named("blog")),
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(ids))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	if cfg.SnapshotDir != "" {
		r.Use(CrawlerSnapshots(cfg.SnapshotDir, logger.Named("crawler")))
	}
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/content/*", s.contentFile)
	r.Method(http.MethodGet, "/static/*", http.StripPrefix("/static", web.StaticHandler()))
	r.Get("/partials/{name}", s.partial)
	r.Get("/*", s.shell)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready once the table of contents can be loaded.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.posts.TableOfContents(ctx); err != nil {
		writeJSON(w, s.logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) contentFile(w http.ResponseWriter, r *http.Request) {
	rel := "content/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	data, err := s.fetcher.Fetch(r.Context(), rel)
	switch {
	case errors.Is(err, content.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		s.logger.Warn("content fetch failed", zap.String("path", rel), zap.Error(err))
		http.Error(w, "content unavailable", http.StatusBadGateway)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(rel)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("content write failed", zap.Error(err))
	}
}

// shell renders the full page for any site route.
func (s *Server) shell(w http.ResponseWriter, r *http.Request) {
	m := s.routes.Resolve(r.URL.Path)
	if m.Redirect != "" {
		http.Redirect(w, r, m.Redirect, http.StatusFound)
		return
	}

	session := view.NewSession(s.cfg.SiteName)
	defer session.Close()
	act := session.Activate(r.Context())

	res, err := s.activate(act, m)
	if err != nil {
		s.renderFailure(w, r, act, err)
		return
	}
	if res.redirect != "" {
		http.Redirect(w, r, res.redirect, http.StatusFound)
		return
	}
	s.renderPage(w, http.StatusOK, web.Page{
		Meta:  act.Meta(),
		Nav:   view.NewNav(r.URL.Path),
		View:  string(m.View),
		Model: res.model,
	})
}

// partial renders a single view fragment for the route in the path query
// parameter.
func (s *Server) partial(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.routes.HasView(name) || !s.renderer.HasPartial(name) {
		http.NotFound(w, r)
		return
	}
	target := r.URL.Query().Get("path")
	if target == "" {
		target = "/"
	}
	m := s.routes.Resolve(target)
	if m.Redirect != "" || string(m.View) != name {
		http.NotFound(w, r)
		return
	}

	session := view.NewSession(s.cfg.SiteName)
	defer session.Close()
	act := session.Activate(r.Context())

	res, err := s.activate(act, m)
	switch {
	case errors.Is(err, view.ErrNoPosts):
		http.NotFound(w, r)
		return
	case err != nil:
		s.logFailure(r, err)
		http.Error(w, "content unavailable", http.StatusBadGateway)
		return
	}
	if res.redirect != "" {
		http.Redirect(w, r, "/partials/"+name+"?"+url.Values{"path": {res.redirect}}.Encode(), http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderPartial(w, name, res.model); err != nil {
		s.logger.Error("render partial failed", zap.String("partial", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

type activation struct {
	model    any
	redirect string
}

func (s *Server) activate(act *view.Activation, m router.Match) (activation, error) {
	switch m.View {
	case router.ViewIndex:
		v, err := s.index.Activate(act)
		if err != nil {
			return activation{}, err
		}
		return activation{model: v}, nil
	case router.ViewBlog:
		res, err := s.blog.Activate(act, m.Slug)
		if err != nil {
			return activation{}, err
		}
		if res.Redirect != "" {
			return activation{redirect: res.Redirect}, nil
		}
		return activation{model: res.View}, nil
	default:
		return activation{}, errors.New("no controller for view " + string(m.View))
	}
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, act *view.Activation, err error) {
	status := http.StatusBadGateway
	msg := web.Message{Heading: "Content unavailable", Text: "Please try again in a moment."}
	if errors.Is(err, view.ErrNoPosts) {
		status = http.StatusNotFound
		msg = web.Message{Heading: "Nothing here yet", Text: "No posts have been published."}
	} else {
		s.logFailure(r, err)
	}
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		return
	}
	s.renderPage(w, status, web.Page{
		Meta:  act.Meta(),
		Nav:   view.NewNav(r.URL.Path),
		View:  "message",
		Model: msg,
	})
}

func (s *Server) logFailure(r *http.Request, err error) {
	s.logger.Warn("view activation failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, p web.Page) {
	var buf strings.Builder
	if err := s.renderer.RenderPage(&buf, p); err != nil {
		s.logger.Error("render page failed", zap.String("view", p.View), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(buf.String())); err != nil {
		s.logger.Debug("page write failed", zap.Error(err))
	}
}
