// Package app turns a Config into the long-lived services shared by the
// serve and snapshot commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/clock/system"
	"github.com/kalmas/kalmas-net/internal/config"
	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/content/dirsource"
	"github.com/kalmas/kalmas-net/internal/content/httpsource"
	"github.com/kalmas/kalmas-net/internal/hash/sha256"
	"github.com/kalmas/kalmas-net/internal/id/uuid"
	memorypublisher "github.com/kalmas/kalmas-net/internal/publisher/memory"
	gcppublisher "github.com/kalmas/kalmas-net/internal/publisher/pubsub"
	"github.com/kalmas/kalmas-net/internal/snapshot"
	"github.com/kalmas/kalmas-net/internal/snapshot/detector"
	"github.com/kalmas/kalmas-net/internal/snapshot/headless"
	"github.com/kalmas/kalmas-net/internal/snapshot/static"
	gcsstorage "github.com/kalmas/kalmas-net/internal/storage/gcs"
	localstorage "github.com/kalmas/kalmas-net/internal/storage/local"
	memorystorage "github.com/kalmas/kalmas-net/internal/storage/memory"
	pgstore "github.com/kalmas/kalmas-net/internal/storage/postgres"
)

// NewContentFetcher returns the content store selected by content.source.
func NewContentFetcher(cfg config.Config) (content.Fetcher, error) {
	switch cfg.Content.Source {
	case "http":
		f, err := httpsource.New(httpsource.Config{
			BaseURL:   cfg.Content.BaseURL,
			UserAgent: cfg.Content.UserAgent,
			Timeout:   cfg.ContentTimeout(),
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("http content source: %w", err)
		}
		return f, nil
	case "dir", "":
		f, err := dirsource.New(dirsource.Config{RootDir: cfg.Content.RootDir})
		if err != nil {
			return nil, fmt.Errorf("dir content source: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown content source %q", cfg.Content.Source)
	}
}

// Snapshot owns the clients behind a snapshot build.
type Snapshot struct {
	cfg    config.Config
	logger *zap.Logger

	blobs        snapshot.BlobStore
	storage      *storage.Client
	runs         *pgstore.RunStore
	pubsubClient *pubsub.Client
	pubsub       *gcppublisher.Publisher
	publisher    snapshot.Publisher
	headless     *headless.Renderer
	builder      *snapshot.Builder
}

// BuildSnapshot wires a snapshot builder. outDir overrides the directory the
// local backend writes to.
func BuildSnapshot(ctx context.Context, cfg config.Config, outDir string, logger *zap.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Snapshot{cfg: cfg, logger: logger}
	if err := s.setupStorage(ctx, outDir); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.setupDatabase(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.setupPublisher(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.setupBuilder(outDir); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Blobs returns the configured blob store.
func (s *Snapshot) Blobs() snapshot.BlobStore {
	return s.blobs
}

// Run plans and executes tasks.
func (s *Snapshot) Run(ctx context.Context, tasks []snapshot.Task) (snapshot.Report, error) {
	report, err := s.builder.Run(ctx, tasks)
	if err != nil {
		return snapshot.Report{}, fmt.Errorf("snapshot build: %w", err)
	}
	return report, nil
}

// Close releases every client in reverse order of creation.
func (s *Snapshot) Close() {
	if s.headless != nil {
		s.headless.Close()
	}
	if s.pubsub != nil {
		s.pubsub.Stop()
	}
	if s.pubsubClient != nil {
		if err := s.pubsubClient.Close(); err != nil {
			s.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if s.runs != nil {
		s.runs.Close()
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			s.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
}

func (s *Snapshot) setupStorage(ctx context.Context, outDir string) error {
	switch s.cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		s.storage = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket:       s.cfg.Storage.Bucket,
			CacheControl: s.cfg.Storage.CacheControl,
		})
		if err != nil {
			return fmt.Errorf("gcs blob store init failed: %w", err)
		}
		s.blobs = blobs
		s.logger.Info("using GCS snapshot storage", zap.String("bucket", s.cfg.Storage.Bucket))
	case "memory":
		s.blobs = memorystorage.NewBlobStore()
		s.logger.Info("using in-memory snapshot storage")
	default:
		dir := outDir
		if dir == "" {
			dir = s.cfg.Server.SnapshotDir
		}
		blobs, err := localstorage.New(dir)
		if err != nil {
			return fmt.Errorf("local blob store init failed: %w", err)
		}
		s.blobs = blobs
		s.logger.Info("using local snapshot storage", zap.String("dir", blobs.Root()))
	}
	return nil
}

func (s *Snapshot) setupDatabase(ctx context.Context) error {
	if s.cfg.DB.DSN == "" {
		s.logger.Debug("no db.dsn configured, snapshot runs will not be recorded")
		return nil
	}
	runs, err := pgstore.New(ctx, pgstore.Config{
		DSN:             s.cfg.DB.DSN,
		Table:           s.cfg.DB.Table,
		MaxConns:        s.cfg.DB.MaxConns,
		MinConns:        s.cfg.DB.MinConns,
		MaxConnLifetime: s.cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("run store init failed: %w", err)
	}
	s.runs = runs
	if err := runs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("run store schema: %w", err)
	}
	s.logger.Info("snapshot run store initialized", zap.String("table", s.cfg.DB.Table))
	return nil
}

func (s *Snapshot) setupPublisher(ctx context.Context) error {
	if s.cfg.PubSub.TopicName == "" {
		return nil
	}
	if s.cfg.PubSub.ProjectID == "" {
		s.logger.Warn("pubsub.project_id not set, run summaries stay in memory")
		s.publisher = memorypublisher.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, s.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	s.pubsubClient = client
	pub, err := gcppublisher.New(client)
	if err != nil {
		return fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	s.pubsub = pub
	s.publisher = pub
	s.logger.Info("pubsub publisher initialized",
		zap.String("project", s.cfg.PubSub.ProjectID),
		zap.String("topic", s.cfg.PubSub.TopicName),
	)
	return nil
}

func (s *Snapshot) setupBuilder(outDir string) error {
	snap := s.cfg.Snapshot
	deps := snapshot.Deps{
		Blobs:  s.blobs,
		Hasher: sha256.New(),
		Clock:  system.New(),
		IDs:    uuid.New(),
		Post:   snapshot.NewPostProcessor(snap.StripScripts, snap.Host, snap.PublicHost),
	}
	if s.runs != nil {
		deps.Runs = s.runs
	}
	if s.publisher != nil {
		deps.Publish = s.publisher
	}
	initial, maxDelay := s.cfg.Backoff()
	deps.Retry = snapshot.NewRetryPolicy(snap.MaxAttempts, initial, maxDelay)

	probe := static.New(static.Config{UserAgent: snap.UserAgent, Timeout: s.cfg.NavTimeout()})
	switch snap.Renderer {
	case snapshot.ModeStatic:
		deps.Renderer = probe
	case snapshot.ModeHeadless, snapshot.ModeAuto:
		browser, err := s.newHeadless()
		if err != nil {
			return err
		}
		if snap.Renderer == snapshot.ModeHeadless {
			deps.Renderer = browser
		} else {
			deps.Renderer = probe
			deps.Headless = browser
			deps.Detector = detector.NewHeuristic(snap.PromotionThreshold)
		}
	default:
		return fmt.Errorf("%w: unknown renderer %q", snapshot.ErrRendererDisabled, snap.Renderer)
	}

	builder, err := snapshot.NewBuilder(deps, snapshot.Config{
		Mode:        snap.Renderer,
		Host:        snap.Host,
		Concurrency: snap.Concurrency,
		ContentType: s.cfg.Storage.ContentType,
		Prefix:      s.blobPrefix(outDir),
		Topic:       s.cfg.PubSub.TopicName,
		RenderQPS:   snap.RenderQPS,
	}, s.logger.Named("builder"))
	if err != nil {
		return fmt.Errorf("snapshot builder init failed: %w", err)
	}
	s.builder = builder
	return nil
}

func (s *Snapshot) newHeadless() (*headless.Renderer, error) {
	browser, err := headless.New(headless.Config{
		MaxParallel:       s.cfg.Snapshot.Concurrency,
		UserAgent:         s.cfg.Snapshot.UserAgent,
		NavigationTimeout: s.cfg.NavTimeout(),
		Settle:            s.cfg.SettleDelay(),
	})
	if err != nil {
		return nil, errors.Join(snapshot.ErrRendererDisabled, fmt.Errorf("headless renderer init failed: %w", err))
	}
	s.headless = browser
	return browser, nil
}

// blobPrefix keeps local snapshots at the layout the server reads. Remote
// and in-memory stores key objects by storage.prefix joined with OUTDIR.
func (s *Snapshot) blobPrefix(outDir string) string {
	if s.cfg.Storage.Backend == "local" || s.cfg.Storage.Backend == "" {
		if s.cfg.Storage.Prefix != "" {
			s.logger.Warn("storage.prefix ignored for local snapshots", zap.String("prefix", s.cfg.Storage.Prefix))
		}
		return ""
	}
	return strings.Trim(path.Join(s.cfg.Storage.Prefix, filepath.ToSlash(outDir)), "/")
}
