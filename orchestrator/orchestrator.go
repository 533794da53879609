// Package orchestrator drives a sync.
//
// Start runs on the initiating side: it loads the campaign context, checks
// that a search_list schema exists, takes the server's search terms,
// registers the sync for quota accounting, posts the handoff record and
// opens the platform page. Resume runs in that page: it takes the record,
// picks the platform's extractor from a static table and runs it.
//
// Every transition pushes a Progress snapshot to the observer before the
// call continues.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/leadsync/handoff"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
)

// Deps are the collaborators of an Orchestrator. Start needs Backend,
// Mailbox and Opener; Resume needs Mailbox and Extractors.
type Deps struct {
	Backend    Backend
	Mailbox    Mailbox
	Opener     PageOpener
	Extractors map[pagetype.Platform]ExtractorFactory
	Logger     *slog.Logger
}

// Orchestrator runs one sync. It is driven by one goroutine; Abort may be
// called from another.
type Orchestrator struct {
	deps     Deps
	observer Observer
	logger   *slog.Logger
	aborted  atomic.Bool

	mu       sync.Mutex
	cfg      Config
	progress Progress
}

// New returns an Orchestrator for cfg. observer may be nil.
func New(cfg Config, observer Observer, deps Deps) *Orchestrator {
	if observer == nil {
		observer = func(Progress) {}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		deps:     deps,
		observer: observer,
		logger:   logger,
		cfg:      cfg,
		progress: Progress{
			Status:        StatusPreparing,
			TotalKeywords: len(cfg.Keywords),
			Message:       "Preparing to sync...",
		},
	}
}

// Progress returns the latest snapshot.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Config returns the sync configuration, including resolved keywords.
func (o *Orchestrator) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// Aborted reports whether Abort was called.
func (o *Orchestrator) Aborted() bool { return o.aborted.Load() }

// Abort stops the sync at its next step and reports the error state at
// once. In-flight requests are not cancelled. Abort after completion only
// sets the flag.
func (o *Orchestrator) Abort() {
	o.aborted.Store(true)
	o.update(func(p *Progress) {
		p.Status = StatusError
		p.Message = "Sync aborted by user"
	})
	o.logger.Info("orchestrator: aborted", "campaign_id", o.Config().CampaignID)
}

// update applies fn and notifies the observer. Once the status is
// terminal, later transitions are dropped.
func (o *Orchestrator) update(fn func(p *Progress)) {
	o.mu.Lock()
	if o.progress.Status.Terminal() {
		o.mu.Unlock()
		return
	}
	fn(&o.progress)
	snap := o.progress
	o.mu.Unlock()
	o.observer(snap)
}

func (o *Orchestrator) fail(err error) error {
	if errors.Is(err, ErrAborted) {
		return err
	}
	o.logger.Error("orchestrator: sync failed", "campaign_id", o.Config().CampaignID, "error", err)
	o.update(func(p *Progress) {
		p.Status = StatusError
		p.Message = "Sync failed"
		p.Error = err.Error()
	})
	return err
}

func (o *Orchestrator) checkAbort() error {
	if o.aborted.Load() {
		return ErrAborted
	}
	return nil
}

// Start prepares the sync and hands it off to a newly opened page. It
// returns once the page is requested; the handed-off side reports its own
// progress.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.start(ctx); err != nil {
		return o.fail(err)
	}
	return nil
}

func (o *Orchestrator) start(ctx context.Context) error {
	if err := o.checkAbort(); err != nil {
		return err
	}
	cfg := o.Config()

	o.update(func(p *Progress) {
		p.Status = StatusPreparing
		p.Message = "Loading campaign data..."
	})
	cc, err := o.deps.Backend.CampaignContext(ctx, cfg.CampaignID)
	if err != nil {
		return err
	}
	if !cc.Success {
		return errors.New("Failed to load campaign data")
	}
	schemas, err := cc.SchemaMap()
	if err != nil {
		return err
	}
	o.logger.Info("orchestrator: campaign context loaded",
		"campaign_id", cfg.CampaignID, "platform", cfg.Platform,
		"search_terms", len(cc.SearchTerms), "has_schema", schemas.Has(string(cfg.Platform), string(pagetype.SearchList)))

	if !schemas.Has(string(cfg.Platform), string(pagetype.SearchList)) {
		return missingSchema(cfg.Platform)
	}
	if err := o.checkAbort(); err != nil {
		return err
	}

	terms := append([]string(nil), cc.SearchTerms...)
	o.mu.Lock()
	o.cfg.Keywords = terms
	o.mu.Unlock()
	o.update(func(p *Progress) {
		p.TotalKeywords = len(terms)
		p.Message = fmt.Sprintf("Ready to sync with %d search terms", len(terms))
	})
	if len(terms) == 0 {
		return &ConfigError{Platform: cfg.Platform, Message: "No search terms available"}
	}

	o.update(func(p *Progress) {
		p.Status = StatusPreparing
		p.Message = "Recording sync start..."
	})
	res, err := o.deps.Backend.RecordSyncStart(ctx, cfg.CampaignID)
	if err != nil {
		return &QuotaError{CampaignID: cfg.CampaignID, Err: err}
	}
	if !res.Success {
		return &QuotaError{CampaignID: cfg.CampaignID, Message: res.Message}
	}
	if err := o.checkAbort(); err != nil {
		return err
	}

	o.update(func(p *Progress) {
		p.Status = StatusNavigating
		p.Message = fmt.Sprintf("Opening %s...", cfg.Platform)
	})
	home := pagetype.HomeURL(cfg.Platform)
	if home == "" {
		return &ConfigError{Platform: cfg.Platform, Message: fmt.Sprintf("Unsupported platform: %s", cfg.Platform)}
	}

	platformSchemas, err := json.Marshal(schemas[string(cfg.Platform)])
	if err != nil {
		return fmt.Errorf("orchestrator: encode schemas: %w", err)
	}
	rec := &handoff.Record{
		CampaignID:         cfg.CampaignID,
		Platform:           cfg.Platform,
		Keywords:           terms,
		Offering:           cfg.Offering,
		IntelligentMode:    cfg.IntelligentMode,
		MaxLeadsPerKeyword: cfg.MaxLeadsPerKeyword,
		Subreddits:         cfg.Subreddits,
		Schemas:            platformSchemas,
	}
	if err := o.deps.Mailbox.Post(ctx, rec); err != nil {
		return err
	}
	if err := o.checkAbort(); err != nil {
		o.withdraw(ctx)
		return err
	}
	if err := o.deps.Opener.OpenPage(ctx, home); err != nil {
		return err
	}
	// The opened page may already have taken the record; it runs on its own.
	if err := o.checkAbort(); err != nil {
		return err
	}

	o.update(func(p *Progress) {
		p.Status = StatusComplete
		p.Message = fmt.Sprintf("Opening %s in new tab. Sync will continue automatically...", cfg.Platform)
	})
	return nil
}

// withdraw clears a record posted before an abort landed.
func (o *Orchestrator) withdraw(ctx context.Context) {
	if _, err := o.deps.Mailbox.Take(ctx); err != nil && !errors.Is(err, handoff.ErrEmpty) && !errors.Is(err, handoff.ErrStale) {
		o.logger.Warn("orchestrator: withdraw handoff record", "error", err)
	}
}

// Resume takes the handoff record and runs the platform's extractor.
func (o *Orchestrator) Resume(ctx context.Context) error {
	if err := o.resume(ctx); err != nil {
		return o.fail(err)
	}
	return nil
}

func (o *Orchestrator) resume(ctx context.Context) error {
	if err := o.checkAbort(); err != nil {
		return err
	}
	o.update(func(p *Progress) {
		p.Status = StatusPreparing
		p.Message = "Reading pending sync..."
	})
	rec, err := o.deps.Mailbox.Take(ctx)
	if err != nil {
		return err
	}
	if err := o.checkAbort(); err != nil {
		return err
	}

	cfg := Config{
		CampaignID:         rec.CampaignID,
		Platform:           rec.Platform,
		Keywords:           rec.Keywords,
		Offering:           rec.Offering,
		IntelligentMode:    rec.IntelligentMode,
		MaxLeadsPerKeyword: rec.MaxLeadsPerKeyword,
		Subreddits:         rec.Subreddits,
	}
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()

	var pageSchemas map[string]map[string]schema.Entry
	if len(rec.Schemas) > 0 {
		if err := json.Unmarshal(rec.Schemas, &pageSchemas); err != nil {
			return fmt.Errorf("orchestrator: decode handed-off schemas: %w", err)
		}
	}
	schemas := schema.Map{string(cfg.Platform): pageSchemas}
	if !schemas.Has(string(cfg.Platform), string(pagetype.SearchList)) {
		return missingSchema(cfg.Platform)
	}

	factory, ok := o.deps.Extractors[cfg.Platform]
	if !ok {
		return &ConfigError{Platform: cfg.Platform, Message: fmt.Sprintf("Sync not yet implemented for %s", cfg.Platform)}
	}
	ex, err := factory(cfg, schemas, &Tracker{o: o})
	if err != nil {
		return err
	}

	o.update(func(p *Progress) {
		p.Status = StatusSearching
		p.TotalKeywords = len(cfg.Keywords)
		p.Message = fmt.Sprintf("Searching %s for %d terms...", cfg.Platform, len(cfg.Keywords))
	})
	o.logger.Info("orchestrator: resumed", "seq", rec.Seq, "campaign_id", cfg.CampaignID, "platform", cfg.Platform)

	err = ex.Sync(ctx)
	found, submitted := ex.LeadsFound(), ex.LeadsSubmitted()
	o.update(func(p *Progress) {
		p.LeadsFound = found
		p.LeadsSubmitted = submitted
	})
	if err != nil {
		return err
	}
	if err := o.checkAbort(); err != nil {
		return err
	}

	o.update(func(p *Progress) {
		p.Status = StatusComplete
		p.Message = fmt.Sprintf("Sync complete! Found %d leads, submitted %d", found, submitted)
	})
	o.logger.Info("orchestrator: sync complete", "campaign_id", cfg.CampaignID, "found", found, "submitted", submitted)
	return nil
}
