package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/metrics"
)

// EscapedFragmentParam is the query parameter crawlers use to ask for a
// pre-rendered page.
const EscapedFragmentParam = "_escaped_fragment_"

type requestIDKey struct{}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(ids IDGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" && ids != nil {
				if id, err := ids.NewID(); err == nil {
					reqID = id
				}
			}
			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", RequestID(r.Context())),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestID(r.Context())),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// SnapshotPath maps an escaped fragment to the snapshot file that holds its
// pre-rendered page. The result is rooted at "/".
func SnapshotPath(fragment string) string {
	if fragment == "" || fragment == "/" {
		return "/index.html"
	}
	if !strings.HasPrefix(fragment, "/") {
		fragment = "/" + fragment
	}
	if !strings.HasSuffix(fragment, ".html") {
		fragment += ".html"
	}
	return fragment
}

// CrawlerSnapshots serves pre-rendered pages from dir to requests carrying
// the escaped fragment parameter. The parameter's presence is what counts; an
// empty value selects the index page. Any failure to serve the file is a 404.
// Requests without the parameter pass through.
func CrawlerSnapshots(dir string, logger *zap.Logger) func(http.Handler) http.Handler {
	root := http.Dir(dir)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			if !query.Has(EscapedFragmentParam) {
				next.ServeHTTP(w, r)
				return
			}
			name := SnapshotPath(query.Get(EscapedFragmentParam))
			if err := serveSnapshot(w, r, root, name); err != nil {
				logger.Info("snapshot not served",
					zap.String("fragment", query.Get(EscapedFragmentParam)),
					zap.String("file", name),
					zap.Error(err),
				)
				metrics.ObserveCrawlerSnapshot("not_found")
				http.NotFound(w, r)
				return
			}
			metrics.ObserveCrawlerSnapshot("served")
		})
	}
}

func serveSnapshot(w http.ResponseWriter, r *http.Request, root http.FileSystem, name string) error {
	f, err := root.Open(name)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}
	if info.IsDir() {
		return errors.New("snapshot is a directory")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return nil
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	return rw.ResponseWriter.Write(b) //nolint:wrapcheck // callers expect the raw writer error
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
