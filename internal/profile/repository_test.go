package profile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalmas/kalmas-net/internal/content"
)

type stubFetcher struct {
	body  string
	err   error
	calls atomic.Int32
}

func (s *stubFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	s.calls.Add(1)
	if path != content.ProfilePath {
		return nil, content.ErrNotFound
	}
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

func TestProfileDecodesAndCaches(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{body: `{
		"bio": "I write software.",
		"skills": ["go", "javascript"],
		"projects": [{"name": "kalmas.net", "url": "https://kalmas.net", "description": "this site"}],
		"interests": {"code": "Go", "book": "Dune", "music": "Jazz", "tv": "The Wire"}
	}`}
	repo := New(f, time.Second, zap.NewNop())

	p, err := repo.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "I write software.", p.Bio)
	assert.Equal(t, []string{"go", "javascript"}, p.Skills)
	require.Len(t, p.Projects, 1)
	assert.Equal(t, "https://kalmas.net", p.Projects[0].URL)
	assert.Equal(t, "Dune", p.Interests.Book)

	_, err = repo.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

// Documents missing fields decode to zero values.
func TestProfileMissingFields(t *testing.T) {
	t.Parallel()

	repo := New(&stubFetcher{body: `{"interests": {}}`}, time.Second, zap.NewNop())
	p, err := repo.Profile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p.Bio)
	assert.Nil(t, p.Skills)
	assert.Nil(t, p.Projects)
	assert.Equal(t, content.Interests{}, p.Interests)
}

func TestProfileFetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	repo := New(&stubFetcher{err: boom}, time.Second, nil)
	_, err := repo.Profile(context.Background())
	require.ErrorIs(t, err, boom)
}
