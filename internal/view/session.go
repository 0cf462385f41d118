// Package view binds repository data to the view models rendered for each
// route.
//
// Every navigation starts a new Activation on the Session. Activations carry
// an epoch and a context; starting a new one cancels the previous context and
// makes any late binding from it fail with ErrStale, so results that arrive
// after navigating away never touch the new view.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/kalmas/kalmas-net/internal/page"
)

// ErrStale is returned when a result arrives for an activation that is no
// longer current.
var ErrStale = errors.New("view activation is stale")

// Session tracks the currently active view.
type Session struct {
	siteName string

	mu     sync.Mutex
	epoch  uint64
	cancel context.CancelFunc
}

// NewSession creates a Session whose page titles use siteName.
func NewSession(siteName string) *Session {
	return &Session{siteName: siteName}
}

// Activate starts a new activation derived from parent and retires the
// previous one.
func (s *Session) Activate(parent context.Context) *Activation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.epoch++
	s.cancel = cancel
	return &Activation{
		session: s,
		epoch:   s.epoch,
		ctx:     ctx,
		meta:    page.New(s.siteName),
	}
}

// Close retires the current activation.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
}

// Activation is one navigation to a view.
type Activation struct {
	session *Session
	epoch   uint64
	ctx     context.Context
	meta    *page.Meta
}

// Context is canceled when the activation is retired.
func (a *Activation) Context() context.Context {
	return a.ctx
}

// Epoch identifies the activation within its session.
func (a *Activation) Epoch() uint64 {
	return a.epoch
}

// Meta is the page metadata owned by this activation.
func (a *Activation) Meta() *page.Meta {
	return a.meta
}

// Current reports whether no newer activation has started.
func (a *Activation) Current() bool {
	a.session.mu.Lock()
	defer a.session.mu.Unlock()
	return a.session.epoch == a.epoch
}

// Bind runs fn if the activation is still current. Binds are serialized with
// each other and with Activate.
func (a *Activation) Bind(fn func()) error {
	a.session.mu.Lock()
	defer a.session.mu.Unlock()
	if a.session.epoch != a.epoch {
		return ErrStale
	}
	fn()
	return nil
}
