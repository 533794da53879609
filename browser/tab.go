package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/leadsync/dom"
)

// Tab is an open page.
type Tab struct {
	Page *rod.Page
	URL  string
}

// OpenTab creates a tab, navigates to pageURL and waits for load.
func (m *Manager) OpenTab(ctx context.Context, pageURL string, blockResources bool) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: not started")
	}

	var (
		page *rod.Page
		err  error
	)
	if m.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if blockResources && len(m.cfg.ResourceBlocking) > 0 {
		blockResourceTypes(page, m.cfg.ResourceBlocking)
	}

	tab := &Tab{Page: page, URL: pageURL}
	if err := m.navigate(ctx, tab, pageURL); err != nil {
		page.Close()
		return nil, err
	}
	return tab, nil
}

func (m *Manager) navigate(ctx context.Context, t *Tab, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	t.URL = pageURL
	return nil
}

// Document returns a live view of the tab for selector evaluation.
func (t *Tab) Document(ctx context.Context) *dom.Live {
	return dom.NewLive(ctx, t.Page)
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

func settle(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
