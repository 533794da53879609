package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/leadsync/dbopen"
	"github.com/hazyhaar/leadsync/kv"
	"github.com/hazyhaar/leadsync/pagetype"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testMailbox(t *testing.T) (*Mailbox, *fakeClock) {
	t.Helper()
	s, err := kv.NewSQLite(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(s, WithClock(clock.now)), clock
}

func record(campaign int64) *Record {
	return &Record{
		CampaignID: campaign,
		Platform:   pagetype.Reddit,
		Keywords:   []string{"need a designer", "logo help"},
		Offering:   "branding",
		Schemas:    json.RawMessage(`{"search_list":{"post_wrapper":{"css_selector":"shreddit-post"}}}`),
	}
}

func TestPostTake(t *testing.T) {
	m, clock := testMailbox(t)
	ctx := context.Background()

	if err := m.Post(ctx, record(7)); err != nil {
		t.Fatal(err)
	}
	clock.advance(5 * time.Second)

	got, err := m.Take(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.CampaignID != 7 || got.Seq != 1 || len(got.Keywords) != 2 {
		t.Fatalf("record: %+v", got)
	}
	if got.Timestamp != clock.t.Add(-5*time.Second).UnixMilli() {
		t.Fatalf("timestamp: %d", got.Timestamp)
	}
	if string(got.Schemas) == "" {
		t.Fatal("schemas lost")
	}

	if _, err := m.Take(ctx); !errors.Is(err, ErrEmpty) {
		t.Fatalf("second take: got %v, want ErrEmpty", err)
	}
}

func TestPost_RefusesFreshSlot(t *testing.T) {
	m, clock := testMailbox(t)
	ctx := context.Background()

	if err := m.Post(ctx, record(1)); err != nil {
		t.Fatal(err)
	}
	clock.advance(10 * time.Second)
	if err := m.Post(ctx, record(2)); !errors.Is(err, ErrBusy) {
		t.Fatalf("got %v, want ErrBusy", err)
	}

	cur, err := m.Peek(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cur.CampaignID != 1 {
		t.Fatalf("first record clobbered: %+v", cur)
	}

	clock.advance(DefaultWindow)
	if err := m.Post(ctx, record(2)); err != nil {
		t.Fatalf("post over stale slot: %v", err)
	}
	cur, _ = m.Peek(ctx)
	if cur.CampaignID != 2 || cur.Seq != 3 {
		t.Fatalf("replacement: %+v", cur)
	}
}

func TestPost_AfterTake(t *testing.T) {
	m, _ := testMailbox(t)
	ctx := context.Background()

	if err := m.Post(ctx, record(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Take(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Post(ctx, record(2)); err != nil {
		t.Fatalf("post after take: %v", err)
	}
}

func TestTake_Stale(t *testing.T) {
	m, clock := testMailbox(t)
	ctx := context.Background()

	if err := m.Post(ctx, record(1)); err != nil {
		t.Fatal(err)
	}
	clock.advance(DefaultWindow + time.Second)
	if _, err := m.Take(ctx); !errors.Is(err, ErrStale) {
		t.Fatalf("got %v, want ErrStale", err)
	}
	if _, err := m.Peek(ctx); !errors.Is(err, ErrEmpty) {
		t.Fatalf("stale record not cleared: %v", err)
	}
}
