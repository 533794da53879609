// Package netwatch turns periodic health checks of the backend into the
// online/offline signal the gateway queues on.
//
//	m := netwatch.New(gw, netwatch.Options{URL: baseURL + "/up"})
//	go m.Run(ctx)
package netwatch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Sink receives connectivity changes. *gateway.Gateway implements it.
type Sink interface {
	SetOnline(online bool)
}

// Options tunes the monitor.
type Options struct {
	// URL is requested with GET; any answer below 500 counts as reachable.
	URL string
	// Interval between checks. Default: 15s.
	Interval time.Duration
	// Timeout per check. Default: 5s.
	Timeout time.Duration
	// FailAfter consecutive failed checks switch to offline. Default: 2.
	FailAfter int
	Client    *http.Client
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 15 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.FailAfter <= 0 {
		o.FailAfter = 2
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Monitor polls the backend and reports transitions to a Sink.
type Monitor struct {
	sink     Sink
	opts     Options
	online   bool
	failures int
}

// New returns a Monitor that assumes the backend starts online.
func New(sink Sink, opts Options) *Monitor {
	opts.defaults()
	return &Monitor{sink: sink, opts: opts, online: true}
}

// Run checks at every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.opts.Logger.Info("netwatch: started", "url", m.opts.URL, "interval", m.opts.Interval)
	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.opts.Logger.Info("netwatch: stopped")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one health request and returns the resulting state. Not safe for
// concurrent use with Run.
func (m *Monitor) Check(ctx context.Context) bool {
	ok := m.reachable(ctx)
	switch {
	case ok:
		m.failures = 0
		if !m.online {
			m.online = true
			m.sink.SetOnline(true)
		}
	case ctx.Err() != nil:
	default:
		m.failures++
		if m.online && m.failures >= m.opts.FailAfter {
			m.online = false
			m.sink.SetOnline(false)
		}
	}
	return m.online
}

func (m *Monitor) reachable(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, m.opts.URL, nil)
	if err != nil {
		m.opts.Logger.Error("netwatch: bad health url", "url", m.opts.URL, "error", err)
		return false
	}
	resp, err := m.opts.Client.Do(req)
	if err != nil {
		m.opts.Logger.Debug("netwatch: health request failed", "error", err)
		return false
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return resp.StatusCode < 500
}
