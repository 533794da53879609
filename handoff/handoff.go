// Package handoff passes a sync from the context that starts it to the page
// context that runs it.
//
// The mailbox holds at most one record. Post refuses to overwrite a record
// that is younger than the window and has not been taken; Take reads and
// removes the record in one step and rejects it when it is older than the
// window.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hazyhaar/leadsync/kv"
	"github.com/hazyhaar/leadsync/pagetype"
)

// Key is the kv key of the slot.
const Key = "pending_sync"

const seqKey = Key + ":seq"

// DefaultWindow is both the grace period during which a posted record may
// not be overwritten and the freshness limit applied by Take.
const DefaultWindow = 30 * time.Second

var (
	// ErrBusy means an unconsumed record younger than the window exists.
	ErrBusy = errors.New("handoff: sync already in progress")
	// ErrEmpty means no record is waiting.
	ErrEmpty = errors.New("handoff: no pending sync")
	// ErrStale means the record was older than the window. It has been
	// removed.
	ErrStale = errors.New("handoff: pending sync expired")
)

// Record is the sync configuration handed to the page context.
type Record struct {
	Seq                int64             `json:"seq"`
	CampaignID         int64             `json:"campaignId"`
	Platform           pagetype.Platform `json:"platform"`
	Keywords           []string          `json:"keywords"`
	Offering           string            `json:"offering"`
	IntelligentMode    bool              `json:"intelligentMode,omitempty"`
	MaxLeadsPerKeyword int               `json:"maxLeadsPerKeyword,omitempty"`
	Subreddits         []string          `json:"subreddits,omitempty"`
	Schemas            json.RawMessage   `json:"schemas"`
	Timestamp          int64             `json:"timestamp"` // unix ms
}

// Age returns how long ago the record was posted.
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(r.Timestamp))
}

// Mailbox is the single-slot handoff over a kv.Store.
type Mailbox struct {
	kv     kv.Store
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option { return func(m *Mailbox) { m.window = d } }

// WithClock injects the time source.
func WithClock(now func() time.Time) Option { return func(m *Mailbox) { m.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(m *Mailbox) { m.logger = l } }

// New returns a Mailbox over s.
func New(s kv.Store, opts ...Option) *Mailbox {
	m := &Mailbox{kv: s, window: DefaultWindow, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Post stores rec in the slot, assigning its Seq and Timestamp. It returns
// ErrBusy when a fresh record is still waiting; a stale one is replaced.
func (m *Mailbox) Post(ctx context.Context, rec *Record) error {
	seq, err := m.nextSeq(ctx)
	if err != nil {
		return err
	}

	err = m.kv.Update(ctx, Key, func(cur []byte) ([]byte, error) {
		now := m.now()
		if cur != nil {
			var prev Record
			if err := json.Unmarshal(cur, &prev); err == nil && prev.Age(now) < m.window {
				return nil, fmt.Errorf("%w (seq %d, posted %s ago)", ErrBusy, prev.Seq, prev.Age(now).Round(time.Millisecond))
			}
			m.logger.Warn("handoff: replacing unconsumed record", "seq", seqOf(cur))
		}
		rec.Seq = seq
		rec.Timestamp = now.UnixMilli()
		return json.Marshal(rec)
	})
	if err != nil {
		if errors.Is(err, ErrBusy) {
			return err
		}
		return fmt.Errorf("handoff: post: %w", err)
	}
	m.logger.Info("handoff: posted", "seq", rec.Seq, "campaign_id", rec.CampaignID, "platform", rec.Platform)
	return nil
}

// Take removes and returns the waiting record.
func (m *Mailbox) Take(ctx context.Context) (*Record, error) {
	raw, err := m.kv.Take(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("handoff: take: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("handoff: decode: %w", err)
	}
	if age := rec.Age(m.now()); age > m.window {
		m.logger.Warn("handoff: discarded stale record", "seq", rec.Seq, "age", age)
		return nil, fmt.Errorf("%w (seq %d, posted %s ago)", ErrStale, rec.Seq, age.Round(time.Millisecond))
	}
	return &rec, nil
}

// Peek returns the waiting record without removing it.
func (m *Mailbox) Peek(ctx context.Context) (*Record, error) {
	raw, err := m.kv.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("handoff: peek: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("handoff: decode: %w", err)
	}
	return &rec, nil
}

// Clear empties the slot.
func (m *Mailbox) Clear(ctx context.Context) error {
	return m.kv.Delete(ctx, Key)
}

func (m *Mailbox) nextSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := m.kv.Update(ctx, seqKey, func(cur []byte) ([]byte, error) {
		n, _ := strconv.ParseInt(string(cur), 10, 64)
		seq = n + 1
		return []byte(strconv.FormatInt(seq, 10)), nil
	})
	if err != nil {
		return 0, fmt.Errorf("handoff: seq: %w", err)
	}
	return seq, nil
}

func seqOf(raw []byte) int64 {
	var r struct {
		Seq int64 `json:"seq"`
	}
	_ = json.Unmarshal(raw, &r)
	return r.Seq
}
