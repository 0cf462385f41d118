package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/app"
	"github.com/kalmas/kalmas-net/internal/config"
	"github.com/kalmas/kalmas-net/internal/id/uuid"
	"github.com/kalmas/kalmas-net/internal/logging"
	"github.com/kalmas/kalmas-net/internal/posts"
	"github.com/kalmas/kalmas-net/internal/profile"
	"github.com/kalmas/kalmas-net/internal/web"
)

const shutdownTimeout = 10 * time.Second

// App is the assembled site server.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	server *Server
	posts  *posts.Repository
}

// Build wires the content store, repositories and templates into an App.
func Build(cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(cfg config.Config, logger *zap.Logger) (*App, error) {
	fetcher, err := app.NewContentFetcher(cfg)
	if err != nil {
		return nil, err
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("template init failed: %w", err)
	}
	postRepo := posts.New(fetcher, cfg.ContentTimeout(), logger.Named("posts"))
	profileRepo := profile.New(fetcher, cfg.ContentTimeout(), logger.Named("profile"))

	srv := New(Config{
		SiteName:       cfg.Site.Name,
		DefaultSlug:    cfg.Site.DefaultSlug,
		SnapshotDir:    cfg.Server.SnapshotDir,
		RequestTimeout: cfg.RequestTimeout(),
	}, postRepo, profileRepo, fetcher, renderer, uuid.New(), logger.Named("http"))

	logger.Info("site assembled",
		zap.String("content_source", cfg.Content.Source),
		zap.String("snapshot_dir", cfg.Server.SnapshotDir),
		zap.String("default_slug", cfg.Site.DefaultSlug),
	)
	return &App{cfg: cfg, logger: logger, server: srv, posts: postRepo}, nil
}

// Handler exposes the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run listens on the configured port until ctx is canceled or the process
// receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln and shuts down gracefully once ctx ends.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	go a.warm(ctx)

	srv := &http.Server{
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

// warm loads the table of contents so the first visitor does not pay for it.
func (a *App) warm(ctx context.Context) {
	toc, err := a.posts.TableOfContents(ctx)
	if err != nil {
		a.logger.Warn("table of contents not loaded at startup", zap.Error(err))
		return
	}
	a.logger.Info("table of contents loaded", zap.Int("posts", len(toc)))
}
