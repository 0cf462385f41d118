// Package snapshot pre-renders site pages into static HTML for crawlers that
// do not run scripts.
//
// A build plans one task per page, renders each task on a bounded worker
// pool with retries, strips scripts from the result and writes it through a
// BlobStore at a path mirroring the page URL.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrRendererDisabled is returned when a render mode needs a renderer that
// was not configured.
var ErrRendererDisabled = errors.New("renderer not configured")

// Render modes.
const (
	ModeHeadless = "headless"
	ModeStatic   = "static"
	ModeAuto     = "auto"
)

// Rendered is the markup captured for one URL.
type Rendered struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Renderer   string
}

// Renderer loads a URL and returns its markup.
type Renderer interface {
	Render(ctx context.Context, url string) (Rendered, error)
}

// Detector decides whether a static render needs to be redone in a browser.
type Detector interface {
	ShouldPromote(probe Rendered) bool
}

// BlobStore writes snapshot files and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// RunStore persists build reports.
type RunStore interface {
	RecordRun(ctx context.Context, report Report) error
}

// Publisher announces finished builds.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Task renders URL into the snapshot file Target, a slash-separated path
// relative to the output root.
type Task struct {
	URL    string `json:"url"`
	Target string `json:"target"`
}

// TaskResult records the outcome of one task.
type TaskResult struct {
	Task
	Attempts int    `json:"attempts"`
	Renderer string `json:"renderer,omitempty"`
	Status   int    `json:"status,omitempty"`
	Bytes    int    `json:"bytes"`
	Hash     string `json:"hash,omitempty"`
	URI      string `json:"uri,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the task did not produce a snapshot.
func (r TaskResult) Failed() bool {
	return r.Error != ""
}

// Report summarises a build.
type Report struct {
	RunID      string       `json:"run_id"`
	Host       string       `json:"host"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Results    []TaskResult `json:"results"`
}

// Err joins the errors of every failed task, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Failed() {
			errs = append(errs, fmt.Errorf("%s -> %s: %s", res.URL, res.Target, res.Error))
		}
	}
	return errors.Join(errs...)
}
