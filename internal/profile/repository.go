// Package profile loads the site owner's "about" document.
package profile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/memo"
)

// Repository caches the profile for the lifetime of the process.
type Repository struct {
	fetcher content.Fetcher
	doc     *memo.Loader[content.Profile]
	logger  *zap.Logger
}

// New builds a Repository reading from fetcher.
func New(fetcher content.Fetcher, timeout time.Duration, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{fetcher: fetcher, logger: logger}
	r.doc = memo.New(r.load, timeout)
	return r
}

func (r *Repository) load(ctx context.Context) (content.Profile, error) {
	p, err := content.LoadProfile(ctx, r.fetcher)
	if err != nil {
		r.logger.Warn("profile load failed", zap.Error(err))
		return content.Profile{}, err
	}
	r.logger.Info("profile loaded", zap.Int("skills", len(p.Skills)), zap.Int("projects", len(p.Projects)))
	return p, nil
}

// Profile returns the cached profile, loading it on first use.
func (r *Repository) Profile(ctx context.Context) (content.Profile, error) {
	p, err := r.doc.Get(ctx)
	if err != nil {
		return content.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}
