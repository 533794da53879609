package browser

import (
	"context"
	"fmt"
)

// PageHandler runs in the new page context after Opener opened a tab. The
// context passed is detached from the caller's.
type PageHandler func(ctx context.Context, tab *Tab)

// Opener opens the platform page a sync is handed off to. When OnOpen is
// set it is started in its own goroutine, which plays the role of the new
// execution context.
type Opener struct {
	m      *Manager
	OnOpen PageHandler
	base   context.Context
}

// NewOpener returns an Opener. base bounds the lifetime of handlers.
func NewOpener(base context.Context, m *Manager, onOpen PageHandler) *Opener {
	return &Opener{m: m, OnOpen: onOpen, base: base}
}

// OpenPage opens pageURL in a new tab and returns without waiting for the
// handler.
func (o *Opener) OpenPage(ctx context.Context, pageURL string) error {
	tab, err := o.m.OpenTab(ctx, pageURL, false)
	if err != nil {
		return fmt.Errorf("browser: open page: %w", err)
	}
	o.m.cfg.Logger.Info("browser: opened page", "url", pageURL)
	if o.OnOpen != nil {
		go o.OnOpen(o.base, tab)
	}
	return nil
}
