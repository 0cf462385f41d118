package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/content"
	"github.com/kalmas/kalmas-net/internal/snapshot"
)

func TestSnapshotPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fragment string
		want     string
	}{
		{fragment: "", want: "/index.html"},
		{fragment: "/", want: "/index.html"},
		{fragment: "/blog/my-post", want: "/blog/my-post.html"},
		{fragment: "blog/my-post", want: "/blog/my-post.html"},
		{fragment: "/blog/go-1.21-notes", want: "/blog/go-1.21-notes.html"},
		{fragment: "/blog/my-post.html", want: "/blog/my-post.html"},
		{fragment: "/feed.xml", want: "/feed.xml.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SnapshotPath(tt.fragment), "fragment %q", tt.fragment)
	}
}

func TestCrawlerSnapshotsServesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blog"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("home"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog", "my-post.html"), []byte("post"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog", "go-1.21-notes.html"), []byte("dotted"), 0o644))

	passed := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		passed = true
		w.WriteHeader(http.StatusTeapot)
	})
	h := CrawlerSnapshots(dir, zap.NewNop())(next)

	cases := []struct {
		target string
		status int
		body   string
	}{
		{target: "/?_escaped_fragment_=", status: http.StatusOK, body: "home"},
		{target: "/?_escaped_fragment_=/blog/my-post", status: http.StatusOK, body: "post"},
		{target: "/?_escaped_fragment_=/blog/go-1.21-notes", status: http.StatusOK, body: "dotted"},
		{target: "/?_escaped_fragment_=/blog/other", status: http.StatusNotFound},
		{target: "/?_escaped_fragment_=/blog", status: http.StatusNotFound},
		{target: "/?_escaped_fragment_=/../../etc/passwd", status: http.StatusNotFound},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.target, nil))
		assert.Equal(t, c.status, rec.Code, c.target)
		if c.body != "" {
			assert.Equal(t, c.body, rec.Body.String(), c.target)
		}
	}
	assert.False(t, passed)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/my-post", nil))
	assert.True(t, passed)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestSnapshotPathFindsPlannedTargets(t *testing.T) {
	t.Parallel()

	toc := []content.PostSummary{{Slug: "plain"}, {Slug: "go-1.21-notes"}, {Slug: "v2.0"}}
	for _, task := range snapshot.Plan("http://h", toc) {
		u, err := url.Parse(task.URL)
		require.NoError(t, err)
		assert.Equal(t, "/"+task.Target, SnapshotPath(u.Path), task.URL)
	}
}

func TestCrawlerSnapshotsMissingDir(t *testing.T) {
	t.Parallel()

	h := CrawlerSnapshots(filepath.Join(t.TempDir(), "absent"), zap.NewNop())(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?_escaped_fragment_=", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	h := requestIDMiddleware(staticIDs{})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream", seen)

	assert.Empty(t, RequestID(context.Background()))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	h := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type brokenWriter struct {
	*httptest.ResponseRecorder
	err error
}

func (b brokenWriter) Write([]byte) (int, error) { return 0, b.err }

func TestResponseWriterReturnsWriteErrorUnchanged(t *testing.T) {
	t.Parallel()

	errClosed := errors.New("connection closed")
	rw := &responseWriter{ResponseWriter: brokenWriter{httptest.NewRecorder(), errClosed}, status: http.StatusOK}

	n, err := rw.Write([]byte("body"))
	assert.Zero(t, n)
	assert.Equal(t, errClosed, err)
}
