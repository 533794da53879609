package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/leadsync/dbopen"
	"github.com/hazyhaar/leadsync/gateway"
	"github.com/hazyhaar/leadsync/handoff"
	"github.com/hazyhaar/leadsync/kv"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
)

type fakeBackend struct {
	ctx        *gateway.CampaignContext
	ctxErr     error
	start      *gateway.SyncStart
	startErr   error
	startCalls int
}

func (b *fakeBackend) CampaignContext(context.Context, int64) (*gateway.CampaignContext, error) {
	return b.ctx, b.ctxErr
}

func (b *fakeBackend) RecordSyncStart(context.Context, int64) (*gateway.SyncStart, error) {
	b.startCalls++
	if b.startErr != nil {
		return nil, b.startErr
	}
	return b.start, nil
}

type fakeOpener struct {
	urls   []string
	onOpen func()
}

func (o *fakeOpener) OpenPage(_ context.Context, url string) error {
	o.urls = append(o.urls, url)
	if o.onOpen != nil {
		o.onOpen()
	}
	return nil
}

// hookedMailbox runs onPost after a successful Post.
type hookedMailbox struct {
	*handoff.Mailbox
	onPost func()
}

func (m *hookedMailbox) Post(ctx context.Context, rec *handoff.Record) error {
	if err := m.Mailbox.Post(ctx, rec); err != nil {
		return err
	}
	m.onPost()
	return nil
}

type recorder struct {
	mu   sync.Mutex
	seen []Progress
}

func (r *recorder) observe(p Progress) {
	r.mu.Lock()
	r.seen = append(r.seen, p)
	r.mu.Unlock()
}

func (r *recorder) last() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[len(r.seen)-1]
}

func testMailbox(t *testing.T) *handoff.Mailbox {
	t.Helper()
	s, err := kv.NewSQLite(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	return handoff.New(s)
}

const redditSchemas = `{"reddit":{"search_list":{
	"post_wrapper":{"css_selector":"shreddit-post","xpath_selector":null,"is_required":true,"fallback_value":null},
	"post_title":{"css_selector":"a[slot=title]","xpath_selector":null,"is_required":false,"fallback_value":"Untitled"}}}}`

func campaignContext(terms ...string) *gateway.CampaignContext {
	return &gateway.CampaignContext{
		Success:     true,
		Campaign:    &gateway.Campaign{ID: 7, Name: "Brand"},
		SearchTerms: terms,
		Schemas:     json.RawMessage(redditSchemas),
	}
}

func TestStart_HandsOff(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		ctx:   campaignContext("need a logo", "brand refresh", "design help"),
		start: &gateway.SyncStart{Success: true},
	}
	mb := testMailbox(t)
	opener := &fakeOpener{}
	rec := &recorder{}

	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit, Keywords: []string{"ignored"}, Offering: "branding"},
		rec.observe, Deps{Backend: backend, Mailbox: mb, Opener: opener})
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(rec.seen) < 3 {
		t.Fatalf("observer calls = %d, want >= 3", len(rec.seen))
	}
	if rec.seen[1].TotalKeywords != 3 {
		t.Errorf("second snapshot total = %d, want 3", rec.seen[1].TotalKeywords)
	}
	var sawNavigating bool
	for _, p := range rec.seen {
		if p.Status == StatusNavigating {
			sawNavigating = true
		}
	}
	if !sawNavigating {
		t.Error("no navigating snapshot")
	}
	if got := rec.last().Status; got != StatusComplete {
		t.Errorf("final status = %s", got)
	}
	if backend.startCalls != 1 {
		t.Errorf("sync start calls = %d", backend.startCalls)
	}
	if len(opener.urls) != 1 || opener.urls[0] != pagetype.HomeURL(pagetype.Reddit) {
		t.Errorf("opened %v", opener.urls)
	}

	posted, err := mb.Take(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(posted.Keywords) != 3 || posted.Keywords[0] != "need a logo" {
		t.Errorf("keywords = %v", posted.Keywords)
	}
	if !strings.Contains(string(posted.Schemas), "shreddit-post") || strings.Contains(string(posted.Schemas), `"reddit"`) {
		t.Errorf("schemas = %s", posted.Schemas)
	}
}

func TestStart_MissingSchema(t *testing.T) {
	cc := campaignContext("a", "b")
	cc.Schemas = json.RawMessage(`[]`)
	backend := &fakeBackend{ctx: cc, start: &gateway.SyncStart{Success: true}}
	opener := &fakeOpener{}
	rec := &recorder{}

	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit}, rec.observe,
		Deps{Backend: backend, Mailbox: testMailbox(t), Opener: opener})
	err := o.Start(context.Background())

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	last := rec.last()
	if last.Status != StatusError || !strings.Contains(last.Error, "DEV mode") {
		t.Errorf("last = %+v", last)
	}
	if backend.startCalls != 0 {
		t.Errorf("sync start called %d times", backend.startCalls)
	}
	if len(opener.urls) != 0 {
		t.Errorf("opened %v", opener.urls)
	}
}

func TestStart_NoSearchTerms(t *testing.T) {
	backend := &fakeBackend{ctx: campaignContext(), start: &gateway.SyncStart{Success: true}}
	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit}, nil,
		Deps{Backend: backend, Mailbox: testMailbox(t), Opener: &fakeOpener{}})
	err := o.Start(context.Background())
	if err == nil || err.Error() != "No search terms available" {
		t.Fatalf("err = %v", err)
	}
	if backend.startCalls != 0 {
		t.Error("sync start should not be recorded")
	}
}

func TestStart_QuotaRefused(t *testing.T) {
	backend := &fakeBackend{ctx: campaignContext("a"), start: &gateway.SyncStart{Success: false, Message: "Monthly sync limit reached"}}
	opener := &fakeOpener{}
	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit}, nil,
		Deps{Backend: backend, Mailbox: testMailbox(t), Opener: opener})

	err := o.Start(context.Background())
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Message != "Monthly sync limit reached" {
		t.Fatalf("err = %v", err)
	}
	if len(opener.urls) != 0 {
		t.Error("page opened after refused registration")
	}
	if o.Progress().Status != StatusError {
		t.Errorf("status = %s", o.Progress().Status)
	}
}

func TestStart_CampaignNotLoaded(t *testing.T) {
	backend := &fakeBackend{ctx: &gateway.CampaignContext{Success: false}}
	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit}, nil,
		Deps{Backend: backend, Mailbox: testMailbox(t), Opener: &fakeOpener{}})
	err := o.Start(context.Background())
	if err == nil || err.Error() != "Failed to load campaign data" {
		t.Fatalf("err = %v", err)
	}
}

func TestStart_SecondStartBusy(t *testing.T) {
	ctx := context.Background()
	mb := testMailbox(t)
	deps := func() Deps {
		return Deps{
			Backend: &fakeBackend{ctx: campaignContext("a"), start: &gateway.SyncStart{Success: true}},
			Mailbox: mb,
			Opener:  &fakeOpener{},
		}
	}
	cfg := Config{CampaignID: 7, Platform: pagetype.Reddit}

	if err := New(cfg, nil, deps()).Start(ctx); err != nil {
		t.Fatal(err)
	}
	err := New(cfg, nil, deps()).Start(ctx)
	if !errors.Is(err, handoff.ErrBusy) {
		t.Fatalf("second start err = %v, want ErrBusy", err)
	}
}

func TestAbort(t *testing.T) {
	backend := &fakeBackend{ctx: campaignContext("a"), start: &gateway.SyncStart{Success: true}}
	opener := &fakeOpener{}
	rec := &recorder{}
	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit}, rec.observe,
		Deps{Backend: backend, Mailbox: testMailbox(t), Opener: opener})

	o.Abort()
	if p := o.Progress(); p.Status != StatusError || p.Message != "Sync aborted by user" {
		t.Fatalf("progress = %+v", p)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v", err)
	}
	if len(opener.urls) != 0 {
		t.Error("page opened after abort")
	}
}

func assertAbortedLast(t *testing.T, rec *recorder) {
	t.Helper()
	for i, p := range rec.seen {
		if p.Status == StatusError {
			if rest := rec.seen[i+1:]; len(rest) != 0 {
				t.Fatalf("transitions after abort: %+v", rest)
			}
			if p.Message != "Sync aborted by user" {
				t.Fatalf("error snapshot = %+v", p)
			}
			return
		}
	}
	t.Fatal("no error snapshot")
}

func TestAbort_WhileOpeningPage(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{ctx: campaignContext("logo"), start: &gateway.SyncStart{Success: true}}
	opener := &fakeOpener{}
	rec := &recorder{}
	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit}, rec.observe,
		Deps{Backend: backend, Mailbox: testMailbox(t), Opener: opener})
	opener.onOpen = o.Abort

	if err := o.Start(ctx); !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if p := o.Progress(); p.Status != StatusError {
		t.Fatalf("final progress = %+v", p)
	}
	assertAbortedLast(t, rec)
}

func TestAbort_AfterPostWithdrawsRecord(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{ctx: campaignContext("logo"), start: &gateway.SyncStart{Success: true}}
	opener := &fakeOpener{}
	mb := &hookedMailbox{Mailbox: testMailbox(t)}
	rec := &recorder{}
	o := New(Config{CampaignID: 7, Platform: pagetype.Reddit}, rec.observe,
		Deps{Backend: backend, Mailbox: mb, Opener: opener})
	mb.onPost = o.Abort

	if err := o.Start(ctx); !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if len(opener.urls) != 0 {
		t.Errorf("page opened after abort: %v", opener.urls)
	}
	if _, err := mb.Peek(ctx); !errors.Is(err, handoff.ErrEmpty) {
		t.Errorf("record left in the slot: %v", err)
	}
	assertAbortedLast(t, rec)
}

type abortingExtractor struct{ t *Tracker }

func (a *abortingExtractor) Sync(context.Context) error {
	a.t.Searching(0, "logo")
	a.t.o.Abort()
	a.t.Extracting("late")
	a.t.Submitting(3, 3)
	if a.t.Aborted() {
		return ErrAborted
	}
	return nil
}

func (a *abortingExtractor) LeadsFound() int     { return 3 }
func (a *abortingExtractor) LeadsSubmitted() int { return 3 }

func TestAbort_DuringResume(t *testing.T) {
	ctx := context.Background()
	mb := testMailbox(t)
	if err := mb.Post(ctx, &handoff.Record{
		CampaignID: 7,
		Platform:   pagetype.Reddit,
		Keywords:   []string{"logo"},
		Schemas:    json.RawMessage(`{"search_list":{"post_wrapper":{"css_selector":"shreddit-post"}}}`),
	}); err != nil {
		t.Fatal(err)
	}
	extractors := map[pagetype.Platform]ExtractorFactory{
		pagetype.Reddit: func(_ Config, _ schema.Map, tr *Tracker) (Extractor, error) {
			return &abortingExtractor{t: tr}, nil
		},
	}
	rec := &recorder{}
	o := New(Config{}, rec.observe, Deps{Mailbox: mb, Extractors: extractors})

	if err := o.Resume(ctx); !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	assertAbortedLast(t, rec)
}

type stubExtractor struct {
	t        *Tracker
	keywords []string
	found    int
}

func (s *stubExtractor) Sync(context.Context) error {
	for i, kw := range s.keywords {
		s.t.Searching(i, kw)
		s.found += 2
		s.t.Submitting(s.found, s.found-1)
	}
	return nil
}

func (s *stubExtractor) LeadsFound() int     { return s.found }
func (s *stubExtractor) LeadsSubmitted() int { return s.found - len(s.keywords) }

func TestResume(t *testing.T) {
	ctx := context.Background()
	mb := testMailbox(t)
	if err := mb.Post(ctx, &handoff.Record{
		CampaignID: 7,
		Platform:   pagetype.Reddit,
		Keywords:   []string{"logo", "brand"},
		Schemas:    json.RawMessage(`{"search_list":{"post_wrapper":{"css_selector":"shreddit-post"}}}`),
	}); err != nil {
		t.Fatal(err)
	}

	var gotSchemas schema.Map
	extractors := map[pagetype.Platform]ExtractorFactory{
		pagetype.Reddit: func(cfg Config, schemas schema.Map, tr *Tracker) (Extractor, error) {
			gotSchemas = schemas
			return &stubExtractor{t: tr, keywords: cfg.Keywords}, nil
		},
	}
	rec := &recorder{}
	o := New(Config{}, rec.observe, Deps{Mailbox: mb, Extractors: extractors})
	if err := o.Resume(ctx); err != nil {
		t.Fatal(err)
	}

	if !gotSchemas.Has("reddit", "search_list") {
		t.Errorf("schemas = %v", gotSchemas)
	}
	p := o.Progress()
	if p.Status != StatusComplete || p.LeadsFound != 4 || p.LeadsSubmitted != 2 {
		t.Errorf("progress = %+v", p)
	}
	if o.Config().CampaignID != 7 {
		t.Errorf("config = %+v", o.Config())
	}
	var keywords []string
	for _, s := range rec.seen {
		if s.Status == StatusSearching && s.CurrentKeyword != "" {
			keywords = append(keywords, s.CurrentKeyword)
		}
	}
	if strings.Join(keywords, ",") != "logo,brand" {
		t.Errorf("searched %v", keywords)
	}

	// The record was consumed.
	if err := o.Resume(ctx); !errors.Is(err, handoff.ErrEmpty) {
		t.Errorf("second resume err = %v", err)
	}
}

func TestResume_UnsupportedPlatform(t *testing.T) {
	ctx := context.Background()
	mb := testMailbox(t)
	if err := mb.Post(ctx, &handoff.Record{
		CampaignID: 7,
		Platform:   pagetype.Fiverr,
		Keywords:   []string{"logo"},
		Schemas:    json.RawMessage(`{"search_list":{"post_wrapper":{"css_selector":"div.gig"}}}`),
	}); err != nil {
		t.Fatal(err)
	}
	o := New(Config{}, nil, Deps{Mailbox: mb, Extractors: map[pagetype.Platform]ExtractorFactory{}})
	err := o.Resume(ctx)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Platform != pagetype.Fiverr {
		t.Fatalf("err = %v", err)
	}
}
