package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockNow(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	got := New().Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.After(before) && got.Before(after), "got %v", got)
	assert.Zero(t, got.Nanosecond()%1000)
}
