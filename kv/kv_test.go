package kv

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/leadsync/dbopen"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// stores returns every backend available in this environment. Redis runs
// only when LEADSYNC_TEST_REDIS_URL points at a server.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"sqlite": testSQLite(t)}
	if url := os.Getenv("LEADSYNC_TEST_REDIS_URL"); url != "" {
		r, err := DialRedis(context.Background(), url, "leadsync-test:"+t.Name()+":")
		if err != nil {
			t.Fatalf("redis: %v", err)
		}
		t.Cleanup(func() { r.Close() })
		out["redis"] = r
	}
	return out
}

func TestStore_GetSetDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get missing: %v", err)
			}
			if err := s.Set(ctx, "a", []byte("1")); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "a", []byte("2")); err != nil {
				t.Fatal(err)
			}
			v, err := s.Get(ctx, "a")
			if err != nil || string(v) != "2" {
				t.Fatalf("get: %q %v", v, err)
			}
			if err := s.Delete(ctx, "a"); err != nil {
				t.Fatal(err)
			}
			if err := s.Delete(ctx, "a"); err != nil {
				t.Fatalf("delete missing: %v", err)
			}
			if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("after delete: %v", err)
			}
		})
	}
}

func TestStore_TakeOnce(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Set(ctx, "slot", []byte("payload")); err != nil {
				t.Fatal(err)
			}

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				got  int
				errs []error
			)
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					v, err := s.Take(ctx, "slot")
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil && string(v) == "payload":
						got++
					case errors.Is(err, ErrNotFound):
					default:
						errs = append(errs, err)
					}
				}()
			}
			wg.Wait()
			if len(errs) > 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if got != 1 {
				t.Fatalf("value taken %d times, want 1", got)
			}
		})
	}
}

func TestStore_Update(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := s.Update(ctx, "n", func(cur []byte) ([]byte, error) {
				if cur != nil {
					t.Errorf("cur = %q, want nil", cur)
				}
				return []byte("x"), nil
			})
			if err != nil {
				t.Fatal(err)
			}

			refuse := errors.New("refused")
			err = s.Update(ctx, "n", func(cur []byte) ([]byte, error) {
				return nil, refuse
			})
			if !errors.Is(err, refuse) {
				t.Fatalf("got %v, want refusal", err)
			}
			if v, _ := s.Get(ctx, "n"); string(v) != "x" {
				t.Fatalf("aborted update changed value to %q", v)
			}

			if err := s.Update(ctx, "n", func([]byte) ([]byte, error) { return nil, nil }); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Get(ctx, "n"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("nil update should delete: %v", err)
			}
		})
	}
}
