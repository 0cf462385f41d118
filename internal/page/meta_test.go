package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTitle(t *testing.T) {
	t.Parallel()

	m := New("")
	assert.Equal(t, "kalmas.net", m.DisplayTitle())

	m.SetTitle("Hello World")
	assert.Equal(t, "Hello World | kalmas.net", m.DisplayTitle())

	m.SetTitle("")
	assert.Equal(t, "kalmas.net", m.DisplayTitle())
}

func TestCustomSiteName(t *testing.T) {
	t.Parallel()

	m := New("example.org")
	m.SetTitle("Blog")
	m.SetDescription("Posts")
	assert.Equal(t, "Blog | example.org", m.DisplayTitle())
	assert.Equal(t, "Blog", m.Title())
	assert.Equal(t, "Posts", m.Description())
	assert.Equal(t, "example.org", m.SiteName())
}

func TestInstancesAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := New(""), New("")
	a.SetTitle("A")
	assert.Equal(t, "kalmas.net", b.DisplayTitle())
}
