package store

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/leadsync/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return &Store{DB: db}
}

func strp(s string) *string { return &s }

func TestElementLifecycleWritesHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	e := &Element{
		Platform:      "reddit",
		PageType:      "search_list",
		ElementType:   "post_wrapper",
		CSSSelector:   "shreddit-post",
		XPathSelector: strp("//shreddit-post"),
		Multiple:      true,
		IsActive:      true,
	}
	err := s.InTx(ctx, "author-1", func(tx *Tx) error {
		return tx.Insert(ctx, e, "Schema element created")
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if e.ID == "" || e.Version != "1.0.0" {
		t.Fatalf("insert defaults: id=%q version=%q", e.ID, e.Version)
	}

	got, err := s.GetElement(ctx, e.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v, %v", got, err)
	}
	if got.XPathSelector == nil || *got.XPathSelector != "//shreddit-post" || got.FallbackValue != nil {
		t.Fatalf("nullable columns: %+v", got)
	}
	if !got.Multiple || !got.IsActive {
		t.Fatalf("flags: %+v", got)
	}

	got.CSSSelector = "article.post"
	err = s.InTx(ctx, "author-2", func(tx *Tx) error {
		ok, err := tx.Update(ctx, got, "selector fix")
		if !ok && err == nil {
			t.Fatal("update: element not found")
		}
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = s.InTx(ctx, "author-2", func(tx *Tx) error {
		_, err := tx.Delete(ctx, e.ID, "")
		return err
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gone, _ := s.GetElement(ctx, e.ID); gone != nil {
		t.Fatal("element still present after delete")
	}

	hist, err := s.History(ctx, HistoryFilter{ElementID: e.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 {
		t.Fatalf("history: got %d records, want 3", len(hist))
	}
	wantActions := []string{ActionCreated, ActionUpdated, ActionDeleted}
	for i, h := range hist {
		if h.Action != wantActions[i] {
			t.Errorf("history[%d].Action = %q, want %q", i, h.Action, wantActions[i])
		}
	}
	if hist[0].Actor != "author-1" || hist[1].Actor != "author-2" {
		t.Errorf("actors: %q, %q", hist[0].Actor, hist[1].Actor)
	}

	before, _ := hist[1].Old()
	after, _ := hist[1].New()
	if before.CSSSelector != "shreddit-post" || after.CSSSelector != "article.post" {
		t.Errorf("update snapshots: before=%q after=%q", before.CSSSelector, after.CSSSelector)
	}
	if old, _ := hist[0].Old(); old != nil {
		t.Error("created record should have no old data")
	}
	if cur, _ := hist[2].New(); cur != nil {
		t.Error("deleted record should have no new data")
	}
}

func TestHistoryIsAppendOnly(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, "", func(tx *Tx) error {
		return tx.Insert(ctx, &Element{Platform: "x", PageType: "search_list", ElementType: "post_wrapper", CSSSelector: "article", IsActive: true}, "")
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.DB.Exec(`UPDATE schema_history SET actor = 'mallory'`); err == nil {
		t.Fatal("expected update of history to fail")
	}
	if _, err := s.DB.Exec(`DELETE FROM schema_history`); err == nil {
		t.Fatal("expected delete of history to fail")
	}
}

func TestDeactivate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, "", func(tx *Tx) error {
		for i, typ := range []string{"post_wrapper", "post_title"} {
			e := &Element{Platform: "x", PageType: "search_list", ElementType: typ, CSSSelector: "article", IsActive: true, Order: i}
			if err := tx.Insert(ctx, e, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var n int
	err = s.InTx(ctx, "", func(tx *Tx) error {
		var err error
		n, err = tx.Deactivate(ctx, "x", "search_list", "superseded")
		return err
	})
	if err != nil || n != 2 {
		t.Fatalf("deactivate: n=%d err=%v", n, err)
	}

	active, err := s.ActiveElements(ctx, "x", "search_list")
	if err != nil || len(active) != 0 {
		t.Fatalf("active after deactivate: %d, %v", len(active), err)
	}
	all, err := s.ElementsByVersion(ctx, "x", "search_list", "1.0.0")
	if err != nil || len(all) != 2 {
		t.Fatalf("elements kept: %d, %v", len(all), err)
	}
}
