// Package extract runs a schema-driven sync: for each search term it loads
// the platform's search page, reads posts through the search_list schema
// and submits the ones that mention a term.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/hazyhaar/leadsync/dom"
	"github.com/hazyhaar/leadsync/gateway"
	"github.com/hazyhaar/leadsync/orchestrator"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
)

// Lead defaults for fields the page did not provide.
const (
	DefaultTitle      = "Untitled"
	DefaultAuthor     = "Unknown"
	DefaultConfidence = 0.8
)

// DefaultInterval is the minimum spacing between two search page loads.
const DefaultInterval = 3 * time.Second

// Supported lists the platforms that have an extractor.
var Supported = []pagetype.Platform{pagetype.LinkedIn, pagetype.Reddit, pagetype.X}

// PageSource loads a page and returns a snapshot of its DOM.
type PageSource interface {
	Load(ctx context.Context, url string) (*dom.HTML, error)
}

// Submitter delivers leads to the backend.
type Submitter interface {
	SubmitLead(ctx context.Context, campaignID int64, lead gateway.Lead) gateway.Delivery
}

// Reporter receives progress. *orchestrator.Tracker implements it.
type Reporter interface {
	Aborted() bool
	Searching(index int, keyword string)
	Extracting(message string)
	Submitting(found, submitted int)
}

// Deps are shared by every extractor built from one table.
type Deps struct {
	Source    PageSource
	Submitter Submitter
	// Limiter spaces page loads. Nil means one load per DefaultInterval.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// Factories returns the extractor table for Supported platforms.
func Factories(deps Deps) map[pagetype.Platform]orchestrator.ExtractorFactory {
	if deps.Limiter == nil {
		deps.Limiter = rate.NewLimiter(rate.Every(DefaultInterval), 1)
	}
	table := make(map[pagetype.Platform]orchestrator.ExtractorFactory, len(Supported))
	for _, p := range Supported {
		table[p] = func(cfg orchestrator.Config, schemas schema.Map, t *orchestrator.Tracker) (orchestrator.Extractor, error) {
			return New(cfg, schemas, t, deps)
		}
	}
	return table
}

// Extractor syncs one campaign on one platform. It is not safe for
// concurrent use.
type Extractor struct {
	cfg     orchestrator.Config
	entries map[string]schema.Entry
	report  Reporter
	deps    Deps
	logger  *slog.Logger
	content *contentConverter

	seen      map[string]bool
	found     int
	submitted int
}

// New builds an extractor from the search_list schema of cfg.Platform.
func New(cfg orchestrator.Config, schemas schema.Map, report Reporter, deps Deps) (*Extractor, error) {
	entries := schemas.Entries(string(cfg.Platform), string(pagetype.SearchList))
	w, ok := entries[schema.PostWrapper]
	if !ok || (w.CSSSelector == "" && (w.XPathSelector == nil || *w.XPathSelector == "")) {
		return nil, fmt.Errorf("extract: %s search_list schema has no post_wrapper", cfg.Platform)
	}
	if deps.Source == nil || deps.Submitter == nil {
		return nil, errors.New("extract: page source and submitter are required")
	}
	if deps.Limiter == nil {
		deps.Limiter = rate.NewLimiter(rate.Every(DefaultInterval), 1)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:     cfg,
		entries: entries,
		report:  report,
		deps:    deps,
		logger:  logger.With("platform", cfg.Platform, "campaign_id", cfg.CampaignID),
		content: newContentConverter(),
		seen:    make(map[string]bool),
	}, nil
}

// LeadsFound is the number of distinct matching posts seen.
func (e *Extractor) LeadsFound() int { return e.found }

// LeadsSubmitted is the number of leads the backend accepted. Queued leads
// are not counted.
func (e *Extractor) LeadsSubmitted() int { return e.submitted }

// Sync searches every keyword in order. A failed search is logged and the
// sync moves on; only cancellation and abort stop it.
func (e *Extractor) Sync(ctx context.Context) error {
	for i, kw := range e.cfg.Keywords {
		if e.report.Aborted() {
			return orchestrator.ErrAborted
		}
		e.report.Searching(i, kw)

		accepted := 0
		for _, community := range e.communities() {
			limit := 0
			if e.cfg.MaxLeadsPerKeyword > 0 {
				limit = e.cfg.MaxLeadsPerKeyword - accepted
				if limit <= 0 {
					break
				}
			}
			n, err := e.search(ctx, kw, community, limit)
			accepted += n
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warn("extract: search failed", "keyword", kw, "community", community, "error", err)
			}
		}
		e.logger.Info("extract: keyword done", "keyword", kw, "accepted", accepted)
	}
	return nil
}

// communities returns the places each keyword is searched in. "" is the
// platform-wide search.
func (e *Extractor) communities() []string {
	if e.cfg.Platform == pagetype.Reddit && len(e.cfg.Subreddits) > 0 {
		return e.cfg.Subreddits
	}
	return []string{""}
}

func (e *Extractor) search(ctx context.Context, keyword, community string, limit int) (int, error) {
	if err := e.deps.Limiter.Wait(ctx); err != nil {
		return 0, err
	}
	pageURL := pagetype.SearchURL(e.cfg.Platform, keyword, community)
	doc, err := e.deps.Source.Load(ctx, pageURL)
	if err != nil {
		return 0, fmt.Errorf("extract: load %s: %w", pageURL, err)
	}

	e.report.Extracting(fmt.Sprintf("Extracting posts for %q...", keyword))
	wrappers := e.wrappers(doc)
	e.logger.Debug("extract: posts on page", "url", pageURL, "count", len(wrappers))

	accepted := 0
	for _, w := range wrappers {
		lead, ok := e.readPost(doc, w, pageURL)
		if !ok || e.seen[lead.PlatformID] {
			continue
		}
		e.seen[lead.PlatformID] = true
		if e.cfg.Platform == pagetype.Reddit && community != "" {
			lead.Subreddit = community
		}
		e.found++
		accepted++

		d := e.deps.Submitter.SubmitLead(ctx, e.cfg.CampaignID, lead)
		switch d.Status {
		case gateway.Delivered:
			e.submitted++
		case gateway.Queued:
			e.logger.Info("extract: lead queued", "platform_id", lead.PlatformID)
		default:
			e.logger.Warn("extract: lead submission failed", "platform_id", lead.PlatformID, "error", d.Err)
		}
		e.report.Submitting(e.found, e.submitted)

		if limit > 0 && accepted >= limit {
			break
		}
	}
	return accepted, nil
}

// wrappers selects post_wrapper nodes, CSS first then XPath.
func (e *Extractor) wrappers(doc *dom.HTML) []*html.Node {
	entry := e.entries[schema.PostWrapper]
	if entry.CSSSelector != "" {
		nodes, err := doc.QueryCSS(doc.Root(), entry.CSSSelector)
		if err != nil {
			e.logger.Warn("extract: post_wrapper css", "error", err)
		}
		if len(nodes) > 0 {
			return nodes
		}
	}
	if entry.XPathSelector != nil && *entry.XPathSelector != "" {
		nodes, err := doc.QueryXPath(doc.Root(), *entry.XPathSelector)
		if err != nil {
			e.logger.Warn("extract: post_wrapper xpath", "error", err)
		}
		return nodes
	}
	return nil
}
