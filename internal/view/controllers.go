package view

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/page"
)

// ErrNoPosts is returned by the blog controller when the table of contents
// is empty and there is nothing to redirect to.
var ErrNoPosts = errors.New("no posts published")

// PostSource answers post lookups.
type PostSource interface {
	TableOfContents(ctx context.Context) ([]content.PostSummary, error)
	BySlug(ctx context.Context, slug string) (content.Post, bool, error)
	Newest(ctx context.Context) (content.Post, bool, error)
	Next(ctx context.Context, post content.Post) (content.Post, bool, error)
	Prev(ctx context.Context, post content.Post) (content.Post, bool, error)
	Body(ctx context.Context, post content.Post) ([]byte, error)
}

// ProfileSource returns the site owner's profile.
type ProfileSource interface {
	Profile(ctx context.Context) (content.Profile, error)
}

// BlogPath is the URL of the post with the given slug.
func BlogPath(slug string) string {
	return "/blog/" + url.PathEscape(slug)
}

// IndexView is the model for the about page.
type IndexView struct {
	Meta      *page.Meta
	Bio       string
	Skills    []string
	Projects  []content.Project
	Interests content.Interests
}

// IndexController binds the profile to the about page.
type IndexController struct {
	profiles ProfileSource
}

// NewIndexController builds an IndexController.
func NewIndexController(profiles ProfileSource) *IndexController {
	return &IndexController{profiles: profiles}
}

// Activate populates an IndexView for act.
func (c *IndexController) Activate(act *Activation) (*IndexView, error) {
	v := &IndexView{Meta: act.Meta()}
	if err := act.Bind(func() {
		v.Meta.SetTitle("About")
		v.Meta.SetDescription("Bio, skills and projects of the person behind kalmas.net.")
	}); err != nil {
		return nil, err
	}

	p, err := c.profiles.Profile(act.Context())
	if err != nil {
		return nil, fmt.Errorf("index view: %w", err)
	}
	if err := act.Bind(func() {
		v.Bio = p.Bio
		v.Skills = p.Skills
		v.Projects = p.Projects
		v.Interests = p.Interests
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// BlogView is the model for a single post page.
type BlogView struct {
	Meta  *page.Meta
	Post  *content.Post
	Body  template.HTML
	Next  *content.Post
	Prev  *content.Post
	Posts []content.PostSummary
}

// BlogResult is either a populated view or a redirect target.
type BlogResult struct {
	View     *BlogView
	Redirect string
}

// BlogController binds a post, its neighbours and the post list.
type BlogController struct {
	posts       PostSource
	defaultSlug string
	logger      *zap.Logger
}

// NewBlogController builds a BlogController. defaultSlug is shown when the
// route carries no slug.
func NewBlogController(posts PostSource, defaultSlug string, logger *zap.Logger) *BlogController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlogController{posts: posts, defaultSlug: defaultSlug, logger: logger}
}

// Activate resolves slug for act. An unknown slug yields a redirect to the
// newest post.
func (c *BlogController) Activate(act *Activation, slug string) (BlogResult, error) {
	if slug == "" {
		slug = c.defaultSlug
	}
	ctx := act.Context()

	post, ok, err := c.posts.BySlug(ctx, slug)
	if err != nil {
		return BlogResult{}, fmt.Errorf("blog view: %w", err)
	}
	if !ok {
		return c.redirectToNewest(act, slug)
	}

	v := &BlogView{Meta: act.Meta()}
	if err := act.Bind(func() {
		v.Post = &post
		v.Meta.SetTitle(post.Title)
		v.Meta.SetDescription(describe(post))
	}); err != nil {
		return BlogResult{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		next, ok, err := c.posts.Next(gctx, post)
		if err != nil {
			return fmt.Errorf("next post: %w", err)
		}
		return act.Bind(func() { v.Next = optional(next, ok) })
	})
	g.Go(func() error {
		prev, ok, err := c.posts.Prev(gctx, post)
		if err != nil {
			return fmt.Errorf("prev post: %w", err)
		}
		return act.Bind(func() { v.Prev = optional(prev, ok) })
	})
	g.Go(func() error {
		toc, err := c.posts.TableOfContents(gctx)
		if err != nil {
			return fmt.Errorf("post list: %w", err)
		}
		return act.Bind(func() { v.Posts = toc })
	})
	g.Go(func() error {
		body, err := c.posts.Body(gctx, post)
		switch {
		case errors.Is(err, content.ErrNotFound):
			c.logger.Warn("post body missing", zap.String("slug", post.Slug), zap.String("path", post.ContentPath))
			return nil
		case err != nil:
			return err
		}
		// Post bodies are authored HTML from the content store.
		return act.Bind(func() { v.Body = template.HTML(body) }) //nolint:gosec // trusted content
	})
	if err := g.Wait(); err != nil {
		return BlogResult{}, err
	}
	return BlogResult{View: v}, nil
}

func (c *BlogController) redirectToNewest(act *Activation, slug string) (BlogResult, error) {
	newest, ok, err := c.posts.Newest(act.Context())
	if err != nil {
		return BlogResult{}, fmt.Errorf("newest post: %w", err)
	}
	if !ok {
		return BlogResult{}, ErrNoPosts
	}
	if !act.Current() {
		return BlogResult{}, ErrStale
	}
	target := BlogPath(newest.Slug)
	c.logger.Info("unknown slug, redirecting to newest post",
		zap.String("slug", slug),
		zap.String("redirect", target),
	)
	return BlogResult{Redirect: target}, nil
}

func describe(post content.Post) string {
	switch {
	case post.Date != "" && post.Desk != "":
		return fmt.Sprintf("%s, posted %s by %s.", post.Title, post.Date, post.Desk)
	case post.Date != "":
		return fmt.Sprintf("%s, posted %s.", post.Title, post.Date)
	default:
		return post.Title
	}
}

func optional(post content.Post, ok bool) *content.Post {
	if !ok {
		return nil
	}
	return &post
}
