package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

func TestBlockedTypes(t *testing.T) {
	got := blockedTypes([]string{"Images", "font", "media", "stylesheets", "scripts"})
	want := []proto.NetworkResourceType{
		proto.NetworkResourceTypeImage,
		proto.NetworkResourceTypeFont,
		proto.NetworkResourceTypeMedia,
		proto.NetworkResourceTypeStylesheet,
	}
	if len(got) != len(want) {
		t.Fatalf("blocked %d types, want %d: %v", len(got), len(want), got)
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("%s not blocked", w)
		}
	}
	if got[proto.NetworkResourceTypeScript] {
		t.Error("unknown name mapped to script")
	}
}

func TestConfigDefaults(t *testing.T) {
	m := NewManager(DefaultConfig())
	if !m.cfg.Stealth {
		t.Error("stealth off by default")
	}
	if m.cfg.NavigateTimeout != 30*time.Second || m.cfg.SettleDelay != 2*time.Second {
		t.Errorf("timeouts: %v %v", m.cfg.NavigateTimeout, m.cfg.SettleDelay)
	}
	if m.cfg.Logger == nil {
		t.Error("nil logger")
	}
}

func TestOpenBeforeStart(t *testing.T) {
	m := NewManager(DefaultConfig())
	ctx := context.Background()

	if _, err := m.OpenTab(ctx, "https://www.reddit.com", false); err == nil {
		t.Fatal("OpenTab succeeded without a browser")
	}

	called := false
	o := NewOpener(ctx, m, func(context.Context, *Tab) { called = true })
	if err := o.OpenPage(ctx, "https://www.reddit.com"); err == nil {
		t.Fatal("OpenPage succeeded without a browser")
	}
	if called {
		t.Fatal("handler ran after failed open")
	}

	if _, err := NewSource(m).Load(ctx, "https://www.reddit.com/search/?q=logo"); err == nil {
		t.Fatal("Load succeeded without a browser")
	}
}

func TestStartAfterClose(t *testing.T) {
	m := NewManager(DefaultConfig())
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded on a closed manager")
	}
}

func TestSourceCloseWithoutTab(t *testing.T) {
	s := NewSource(NewManager(DefaultConfig()))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSettleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := settle(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
