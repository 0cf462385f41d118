package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kalmas/kalmas-net/internal/metrics"
)

var errInvalidTarget = errors.New("invalid snapshot target")

// Config controls Builder behavior.
type Config struct {
	Mode        string
	Host        string
	Concurrency int
	ContentType string
	Prefix      string
	Topic       string
	// RenderQPS caps render starts per second; zero means unlimited.
	RenderQPS float64
}

// Deps are the collaborators a Builder drives. Renderer and Blobs are
// required; the rest are optional.
type Deps struct {
	// Renderer is the primary renderer for the configured mode.
	Renderer Renderer
	// Headless renders promoted pages in auto mode.
	Headless Renderer
	Detector Detector
	Blobs    BlobStore
	Runs     RunStore
	Publish  Publisher
	Hasher   Hasher
	Clock    Clock
	IDs      IDGenerator
	Retry    *RetryPolicy
	Post     PostProcessor
}

// Builder renders planned tasks on a bounded worker pool.
type Builder struct {
	deps    Deps
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewBuilder validates deps and returns a Builder.
func NewBuilder(deps Deps, cfg Config, logger *zap.Logger) (*Builder, error) {
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required: %w", ErrRendererDisabled)
	}
	if deps.Blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if cfg.Mode == ModeAuto && (deps.Headless == nil || deps.Detector == nil) {
		return nil, fmt.Errorf("auto mode needs a headless renderer and detector: %w", ErrRendererDisabled)
	}
	if deps.Retry == nil {
		deps.Retry = NewRetryPolicy(0, 0, 0)
	}
	if deps.Hasher == nil {
		deps.Hasher = noHash{}
	}
	if deps.Clock == nil {
		deps.Clock = utcClock{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{deps: deps, cfg: cfg, logger: logger}
	if cfg.RenderQPS > 0 {
		burst := int(cfg.RenderQPS)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RenderQPS), burst)
	}
	return b, nil
}

// Run executes tasks and returns the build report. Task failures are
// recorded in the report; the returned error is reserved for failures of the
// build itself.
func (b *Builder) Run(ctx context.Context, tasks []Task) (Report, error) {
	report := Report{
		Host:      b.cfg.Host,
		StartedAt: b.deps.Clock.Now(),
		Total:     len(tasks),
		Results:   make([]TaskResult, len(tasks)),
	}
	if b.deps.IDs != nil {
		id, err := b.deps.IDs.NewID()
		if err != nil {
			return Report{}, fmt.Errorf("generate run id: %w", err)
		}
		report.RunID = id
	}
	logger := b.logger.With(zap.String("run_id", report.RunID))
	logger.Info("snapshot build started",
		zap.Int("tasks", len(tasks)),
		zap.String("mode", b.cfg.Mode),
		zap.Int("concurrency", b.cfg.Concurrency),
	)

	queue := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				report.Results[i] = b.runTask(ctx, logger, tasks[i])
			}
		}()
	}
	for i := range tasks {
		queue <- i
	}
	close(queue)
	wg.Wait()

	report.FinishedAt = b.deps.Clock.Now()
	for _, res := range report.Results {
		if res.Failed() {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	logger.Info("snapshot build finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	b.recordRun(ctx, logger, report)
	b.publishRun(ctx, logger, report)
	return report, nil
}

func (b *Builder) runTask(ctx context.Context, logger *zap.Logger, task Task) TaskResult {
	result := TaskResult{Task: task}
	if err := validTarget(task.Target); err != nil {
		result.Error = err.Error()
		logger.Error("snapshot task rejected", zap.String("target", task.Target), zap.Error(err))
		return result
	}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		err := b.attempt(ctx, task, &result)
		if err == nil {
			result.Error = ""
			logger.Debug("snapshot written",
				zap.String("url", task.URL),
				zap.String("uri", result.URI),
				zap.String("renderer", result.Renderer),
				zap.Int("attempts", attempt),
			)
			return result
		}
		result.Error = err.Error()
		if !b.deps.Retry.ShouldRetry(err, attempt) {
			logger.Error("snapshot task failed",
				zap.String("url", task.URL),
				zap.String("target", task.Target),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return result
		}
		wait := b.deps.Retry.Backoff(attempt)
		logger.Warn("snapshot attempt failed, retrying",
			zap.String("url", task.URL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := sleep(ctx, wait); err != nil {
			result.Error = err.Error()
			return result
		}
	}
}

func (b *Builder) attempt(ctx context.Context, task Task, result *TaskResult) error {
	if b.limiter != nil {
		start := time.Now()
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("render rate limit: %w", err)
		}
		metrics.ObserveRenderWait(time.Since(start))
	}

	rendered, err := b.render(ctx, task.URL)
	if err != nil {
		return err
	}
	result.Renderer = rendered.Renderer
	result.Status = rendered.StatusCode
	if rendered.StatusCode >= 400 {
		metrics.ObserveSnapshotRender(rendered.Renderer, "http_error", 0)
		return fmt.Errorf("render %s: status %d", task.URL, rendered.StatusCode)
	}

	body, err := b.deps.Post.Process(rendered.Body)
	if err != nil {
		metrics.ObserveSnapshotRender(rendered.Renderer, "error", 0)
		return err
	}
	hash, err := b.deps.Hasher.Hash(body)
	if err != nil {
		return fmt.Errorf("hash snapshot: %w", err)
	}
	uri, err := b.deps.Blobs.PutObject(ctx, b.blobPath(task.Target), b.cfg.ContentType, bytes.NewReader(body))
	if err != nil {
		metrics.ObserveSnapshotRender(rendered.Renderer, "error", 0)
		return fmt.Errorf("put snapshot: %w", err)
	}
	metrics.ObserveSnapshotRender(rendered.Renderer, "ok", len(body))
	result.Bytes = len(body)
	result.Hash = hash
	result.URI = uri
	return nil
}

// render runs the primary renderer and, in auto mode, re-renders in the
// browser when the detector asks for it.
func (b *Builder) render(ctx context.Context, url string) (Rendered, error) {
	metrics.IncActiveRenders()
	defer metrics.DecActiveRenders()

	rendered, err := b.deps.Renderer.Render(ctx, url)
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", url, err)
	}
	if b.cfg.Mode != ModeAuto || !b.deps.Detector.ShouldPromote(rendered) {
		return rendered, nil
	}
	promoted, err := b.deps.Headless.Render(ctx, url)
	if err != nil {
		return Rendered{}, fmt.Errorf("headless render %s: %w", url, err)
	}
	return promoted, nil
}

func (b *Builder) blobPath(target string) string {
	prefix := strings.Trim(b.cfg.Prefix, "/")
	if prefix == "" {
		return target
	}
	return path.Join(prefix, target)
}

func (b *Builder) recordRun(ctx context.Context, logger *zap.Logger, report Report) {
	if b.deps.Runs == nil {
		return
	}
	if err := b.deps.Runs.RecordRun(ctx, report); err != nil {
		logger.Warn("record snapshot run failed", zap.Error(err))
	}
}

func (b *Builder) publishRun(ctx context.Context, logger *zap.Logger, report Report) {
	if b.cfg.Topic == "" || b.deps.Publish == nil {
		return
	}
	payload := map[string]any{
		"run_id":      report.RunID,
		"host":        report.Host,
		"total":       report.Total,
		"succeeded":   report.Succeeded,
		"failed":      report.Failed,
		"finished_at": report.FinishedAt.Format(time.RFC3339),
	}
	id, err := b.deps.Publish.Publish(ctx, b.cfg.Topic, payload)
	if err != nil {
		logger.Warn("publish snapshot run failed", zap.String("topic", b.cfg.Topic), zap.Error(err))
		return
	}
	logger.Info("snapshot run published", zap.String("topic", b.cfg.Topic), zap.String("message_id", id))
}

func validTarget(target string) error {
	if !fs.ValidPath(target) || target == "." || !strings.HasSuffix(target, ".html") {
		return fmt.Errorf("%w: %q", errInvalidTarget, target)
	}
	return nil
}

type noHash struct{}

func (noHash) Hash([]byte) (string, error) { return "", nil }

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
