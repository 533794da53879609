package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/hazyhaar/leadsync/dom"
)

// Source loads pages in one reusable tab and returns static snapshots of
// their DOM. It serialises loads.
type Source struct {
	m   *Manager
	mu  sync.Mutex
	tab *Tab
}

// NewSource returns a Source backed by m.
func NewSource(m *Manager) *Source {
	return &Source{m: m}
}

// TabSource returns a Source that reuses tab, typically the page a sync
// was handed off to. Closing the Source closes the tab.
func (m *Manager) TabSource(tab *Tab) *Source {
	return &Source{m: m, tab: tab}
}

// Load navigates to pageURL, waits for the page to settle and snapshots it.
func (s *Source) Load(ctx context.Context, pageURL string) (*dom.HTML, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		tab, err := s.m.OpenTab(ctx, pageURL, true)
		if err != nil {
			return nil, err
		}
		s.tab = tab
	} else if err := s.m.navigate(ctx, s.tab, pageURL); err != nil {
		return nil, err
	}

	if err := settle(ctx, s.m.cfg.SettleDelay); err != nil {
		return nil, err
	}
	doc, err := s.tab.Document(ctx).Snapshot()
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot %s: %w", pageURL, err)
	}
	return doc, nil
}

// Close closes the tab.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return nil
	}
	err := s.tab.Close()
	s.tab = nil
	return err
}
