// Package static renders pages with a plain HTTP GET via colly. No scripts
// run, so it only captures what the server renders.
package static

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/kalmas/kalmas-net/internal/snapshot"
)

// Name labels renders produced by this package.
const Name = "static"

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Renderer implements snapshot.Renderer using the colly collector.
type Renderer struct {
	cfg  Config
	base *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Renderer.
func New(cfg Config) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &Renderer{cfg: cfg, base: c}
}

// Render fetches url and returns the response body unchanged. Error
// statuses are returned as results, not errors.
func (r *Renderer) Render(ctx context.Context, url string) (snapshot.Rendered, error) {
	var (
		result   snapshot.Rendered
		fetchErr error
	)
	collector := r.base.Clone()
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	if r.cfg.UserAgent != "" {
		collector.UserAgent = r.cfg.UserAgent
	}
	collector.SetRequestTimeout(r.cfg.Timeout)
	configureHooks(collector, time.Now(), &result, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return snapshot.Rendered{}, fmt.Errorf("static render canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return snapshot.Rendered{}, fmt.Errorf("static render failed: %w", fetchErr)
		}
		if err != nil {
			return snapshot.Rendered{}, fmt.Errorf("static visit failed: %w", err)
		}
		return result, nil
	}
}

func configureHooks(hooks collectorHooks, start time.Time, result *snapshot.Rendered, fetchErr *error) {
	hooks.OnResponse(func(resp *colly.Response) {
		*result = snapshot.Rendered{
			URL:        resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       append([]byte(nil), resp.Body...),
			Duration:   time.Since(start),
			Renderer:   Name,
		}
	})
	hooks.OnError(func(resp *colly.Response, err error) {
		// With ParseHTTPErrorResponse set, error statuses reach OnResponse
		// too; only transport failures are errors here.
		if resp != nil && resp.StatusCode != 0 {
			return
		}
		*fetchErr = err
	})
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
}
