package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/leadsync/auth"
	"github.com/hazyhaar/leadsync/browser"
	"github.com/hazyhaar/leadsync/gateway"
	"github.com/hazyhaar/leadsync/handoff"
	"github.com/hazyhaar/leadsync/kv"
	"github.com/hazyhaar/leadsync/schema"
)

// openState opens the store holding tokens and the handoff slot: Redis
// when configured, SQLite otherwise.
func openState(ctx context.Context) (kv.Store, error) {
	if cfg.Storage.RedisURL != "" {
		r, err := kv.DialRedis(ctx, cfg.Storage.RedisURL, cfg.Storage.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	s, err := kv.OpenSQLite(cfg.Storage.StateDB)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openRegistry() (*schema.Registry, error) {
	return schema.New(&schema.Config{DBPath: cfg.Storage.SchemaDB}, logger)
}

func newGateway(tokens gateway.Tokens) *gateway.Gateway {
	gc := gateway.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Tokens:  tokens,
		Logger:  logger,
	}
	if cfg.Backend.RateLimit > 0 {
		gc.Limiter = rate.NewLimiter(rate.Limit(cfg.Backend.RateLimit), cfg.Backend.RateBurst)
	}
	return gateway.New(gc)
}

func newMailbox(s kv.Store) *handoff.Mailbox {
	return handoff.New(s, handoff.WithWindow(cfg.Sync.HandoffWindow), handoff.WithLogger(logger))
}

func startBrowser(ctx context.Context) (*browser.Manager, error) {
	bc := browser.DefaultConfig()
	bc.RemoteURL = cfg.Browser.Remote
	bc.Headful = cfg.Browser.Mode == "headful"
	bc.Stealth = !cfg.Browser.NoStealth
	bc.ResourceBlocking = cfg.Browser.ResourceBlocking
	bc.NavigateTimeout = cfg.Browser.NavigateTimeout
	bc.SettleDelay = cfg.Browser.SettleDelay
	bc.Logger = logger

	m := browser.NewManager(bc)
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// session bundles what backend commands need.
type session struct {
	state  kv.Store
	tokens *auth.TokenStore
	gw     *gateway.Gateway
}

func openSession(ctx context.Context) (*session, error) {
	st, err := openState(ctx)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	tokens := auth.NewTokenStore(st)
	return &session{state: st, tokens: tokens, gw: newGateway(tokens)}, nil
}

func (s *session) Close() {
	s.gw.Close()
	s.state.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
