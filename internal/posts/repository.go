// Package posts answers blog post lookups against the table of contents.
//
// The table of contents is ordered newest first, so position 0 is the newest
// post. Navigation follows that order: Next moves one step toward the newest
// post (index-1) and Prev one step toward the oldest (index+1).
package posts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/memo"
)

// Repository loads the table of contents once and serves lookups from it.
type Repository struct {
	fetcher content.Fetcher
	toc     *memo.Loader[[]content.PostSummary]
	logger  *zap.Logger
}

// New builds a Repository reading from fetcher. timeout bounds each load of
// the table of contents.
func New(fetcher content.Fetcher, timeout time.Duration, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{fetcher: fetcher, logger: logger}
	r.toc = memo.New(r.loadTOC, timeout)
	return r
}

func (r *Repository) loadTOC(ctx context.Context) ([]content.PostSummary, error) {
	toc, err := content.LoadTOC(ctx, r.fetcher)
	if err != nil {
		r.logger.Warn("table of contents load failed", zap.Error(err))
		return nil, err
	}
	r.logger.Info("table of contents loaded", zap.Int("posts", len(toc)))
	return toc, nil
}

// TableOfContents returns every post summary, newest first. The returned
// slice is shared and must not be modified.
func (r *Repository) TableOfContents(ctx context.Context) ([]content.PostSummary, error) {
	toc, err := r.toc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("table of contents: %w", err)
	}
	return toc, nil
}

// BySlug returns the first post whose slug matches. ok is false when no post
// matches.
func (r *Repository) BySlug(ctx context.Context, slug string) (content.Post, bool, error) {
	toc, err := r.TableOfContents(ctx)
	if err != nil {
		return content.Post{}, false, err
	}
	for i, summary := range toc {
		if summary.Slug == slug {
			return decorate(summary, i), true, nil
		}
	}
	return content.Post{}, false, nil
}

// ByIndex returns the post at position index. ok is false when index is out
// of range.
func (r *Repository) ByIndex(ctx context.Context, index int) (content.Post, bool, error) {
	toc, err := r.TableOfContents(ctx)
	if err != nil {
		return content.Post{}, false, err
	}
	if index < 0 || index >= len(toc) {
		return content.Post{}, false, nil
	}
	return decorate(toc[index], index), true, nil
}

// Newest returns the post at position 0.
func (r *Repository) Newest(ctx context.Context) (content.Post, bool, error) {
	return r.ByIndex(ctx, 0)
}

// Next returns the post one position closer to the newest post.
func (r *Repository) Next(ctx context.Context, post content.Post) (content.Post, bool, error) {
	return r.ByIndex(ctx, post.Index-1)
}

// Prev returns the post one position further from the newest post.
func (r *Repository) Prev(ctx context.Context, post content.Post) (content.Post, bool, error) {
	return r.ByIndex(ctx, post.Index+1)
}

// Body fetches the HTML fragment stored at the post's content path.
func (r *Repository) Body(ctx context.Context, post content.Post) ([]byte, error) {
	data, err := r.fetcher.Fetch(ctx, post.ContentPath)
	if err != nil {
		return nil, fmt.Errorf("post body %s: %w", post.Slug, err)
	}
	return data, nil
}

func decorate(summary content.PostSummary, index int) content.Post {
	return content.Post{
		PostSummary: summary,
		Index:       index,
		ContentPath: content.BodyPath(summary.Slug),
	}
}
