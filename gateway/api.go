package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hazyhaar/leadsync/auth"
)

// Cache TTLs per endpoint.
const (
	campaignsTTL = 5 * time.Minute
	statsTTL     = 2 * time.Minute
	leadsTTL     = 3 * time.Minute
)

// Cache key prefixes, usable with InvalidatePrefix.
const (
	CacheCampaigns = "campaigns"
	CacheStats     = "stats"
	CacheLeads     = "leads"
)

// Invalidate drops one cached entry.
func (g *Gateway) Invalidate(key string) { g.cache.invalidate(key) }

// InvalidatePrefix drops every cached entry whose key starts with prefix.
func (g *Gateway) InvalidatePrefix(prefix string) int { return g.cache.invalidatePrefix(prefix) }

// cached serves key from the cache or fetches endpoint, storing the raw
// body on success only.
func (g *Gateway) cached(ctx context.Context, key string, ttl time.Duration, use, store bool, endpoint string) (json.RawMessage, error) {
	if use {
		if v, ok := g.cache.get(key); ok {
			g.logger.DebugContext(ctx, "gateway: cache hit", "key", key)
			return v, nil
		}
	}
	var raw json.RawMessage
	if err := g.Request(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	if store {
		g.cache.set(key, raw, ttl)
	}
	return raw, nil
}

func decode(raw json.RawMessage, out any, what string) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gateway: decode %s: %w", what, err)
	}
	return nil
}

// --- auth ---

// Login exchanges credentials for a token. It is never retried. Storing the
// result is the caller's job.
func (g *Gateway) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var raw json.RawMessage
	body := map[string]string{"email": email, "password": password}
	if err := g.Request(ctx, http.MethodPost, "/api/auth/login", body, &raw, WithoutRetry()); err != nil {
		return nil, err
	}
	var res LoginResult
	return &res, decode(unwrap(raw), &res, "login")
}

// Logout ends the backend session and clears the token store.
func (g *Gateway) Logout(ctx context.Context) error {
	if err := g.Request(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	if g.cfg.Tokens != nil {
		return g.cfg.Tokens.Clear(ctx)
	}
	return nil
}

// User returns the signed-in account.
func (g *Gateway) User(ctx context.Context) (*auth.User, error) {
	var raw json.RawMessage
	if err := g.Request(ctx, http.MethodGet, "/api/auth/user", nil, &raw); err != nil {
		return nil, err
	}
	var u auth.User
	return &u, decode(unwrap(raw, "user"), &u, "user")
}

// Subscription returns the account's plan and usage.
func (g *Gateway) Subscription(ctx context.Context) (*Subscription, error) {
	var raw json.RawMessage
	if err := g.Request(ctx, http.MethodGet, "/api/auth/subscription", nil, &raw); err != nil {
		return nil, err
	}
	var s Subscription
	return &s, decode(unwrap(raw, "subscription"), &s, "subscription")
}

// ValidatePlan returns the plan limits and their usage.
func (g *Gateway) ValidatePlan(ctx context.Context) (*PlanValidation, error) {
	var pv PlanValidation
	if err := g.Request(ctx, http.MethodGet, "/api/auth/validate-plan", nil, &pv); err != nil {
		return nil, err
	}
	return &pv, nil
}

// ValidateToken asks the backend whether the stored token is still valid.
func (g *Gateway) ValidateToken(ctx context.Context) (*TokenValidation, error) {
	var tv TokenValidation
	if err := g.Request(ctx, http.MethodGet, "/api/extension/validate-token", nil, &tv); err != nil {
		return nil, err
	}
	return &tv, nil
}

// Settings returns the public settings of the backend. It is never retried.
func (g *Gateway) Settings(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := g.Request(ctx, http.MethodGet, "/api/settings", nil, &out, WithoutRetry()); err != nil {
		return nil, err
	}
	return out, nil
}

// --- campaigns ---

// Campaigns lists campaigns, cached for five minutes.
func (g *Gateway) Campaigns(ctx context.Context, useCache bool) ([]Campaign, error) {
	raw, err := g.cached(ctx, CacheCampaigns, campaignsTTL, useCache, true, "/api/campaigns")
	if err != nil {
		return nil, err
	}
	var cs []Campaign
	if err := decode(unwrap(raw, "campaigns"), &cs, "campaigns"); err != nil {
		return nil, err
	}
	return cs, nil
}

// Campaign returns one campaign.
func (g *Gateway) Campaign(ctx context.Context, id int64) (*Campaign, error) {
	var raw json.RawMessage
	if err := g.Request(ctx, http.MethodGet, "/api/campaigns/"+strconv.FormatInt(id, 10), nil, &raw); err != nil {
		return nil, err
	}
	var c Campaign
	return &c, decode(unwrap(raw, "campaign"), &c, "campaign")
}

// CampaignContext returns the campaign, its search terms and the schemas.
func (g *Gateway) CampaignContext(ctx context.Context, campaignID int64) (*CampaignContext, error) {
	var cc CampaignContext
	endpoint := fmt.Sprintf("/api/extension/campaigns/%d/context", campaignID)
	if err := g.Request(ctx, http.MethodGet, endpoint, nil, &cc); err != nil {
		return nil, err
	}
	return &cc, nil
}

// GenerateSearchTerms asks the backend to derive search terms for a
// campaign.
func (g *Gateway) GenerateSearchTerms(ctx context.Context, campaignID int64) ([]string, error) {
	var res struct {
		Success  bool     `json:"success"`
		Keywords []string `json:"keywords"`
	}
	body := map[string]int64{"campaign_id": campaignID}
	if err := g.Request(ctx, http.MethodPost, "/api/extension/generate-search-terms", body, &res); err != nil {
		return nil, err
	}
	return res.Keywords, nil
}

// RecordSyncStart registers a manual sync for quota accounting. It is never
// retried: a retry could count the sync twice.
func (g *Gateway) RecordSyncStart(ctx context.Context, campaignID int64) (*SyncStart, error) {
	var res SyncStart
	body := map[string]int64{"campaign_id": campaignID}
	if err := g.Request(ctx, http.MethodPost, "/api/extension/record-sync-start", body, &res, WithoutRetry()); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- leads ---

// SubmitLead posts one lead. Offline, the lead is queued and the Queued
// variant is returned.
func (g *Gateway) SubmitLead(ctx context.Context, campaignID int64, lead Lead) Delivery {
	endpoint := fmt.Sprintf("/api/campaigns/%d/leads", campaignID)
	return g.deliver(ctx, endpoint, lead)
}

// SubmitLeadsBulk posts several leads in one call.
func (g *Gateway) SubmitLeadsBulk(ctx context.Context, campaignID int64, leads []Lead) Delivery {
	endpoint := fmt.Sprintf("/api/campaigns/%d/leads/bulk", campaignID)
	return g.deliver(ctx, endpoint, map[string][]Lead{"leads": leads})
}

func (g *Gateway) deliver(ctx context.Context, endpoint string, body any) Delivery {
	err := g.Request(ctx, http.MethodPost, endpoint, body, nil, WithQueue())
	switch {
	case err == nil:
		g.cache.invalidatePrefix(CacheLeads)
		g.cache.invalidatePrefix(CacheStats)
		return Delivery{Status: Delivered}
	case errors.Is(err, ErrQueued):
		return Delivery{Status: Queued}
	default:
		return Delivery{Status: Failed, Err: err}
	}
}

// ValidateLead asks the backend whether a post is relevant to an offering.
func (g *Gateway) ValidateLead(ctx context.Context, offering, title, description string) (*LeadValidation, error) {
	var res LeadValidation
	body := map[string]string{"offering": offering, "title": title, "description": description}
	if err := g.Request(ctx, http.MethodPost, "/api/extension/validate-lead", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RecordLeadMessage registers an outreach message sent to a lead.
func (g *Gateway) RecordLeadMessage(ctx context.Context, m LeadMessage) (*RecordedMessage, error) {
	var res RecordedMessage
	endpoint := fmt.Sprintf("/api/extension/leads/%d/messages", m.LeadID)
	if err := g.Request(ctx, http.MethodPost, endpoint, m, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Stats returns the dashboard summary. Only the first activity page is
// cached, for two minutes.
func (g *Gateway) Stats(ctx context.Context, activityPage, activityPerPage int, useCache bool) (*Stats, error) {
	if activityPage <= 0 {
		activityPage = 1
	}
	if activityPerPage <= 0 {
		activityPerPage = 5
	}
	q := url.Values{}
	q.Set("activity_page", strconv.Itoa(activityPage))
	q.Set("activity_per_page", strconv.Itoa(activityPerPage))

	first := activityPage == 1
	raw, err := g.cached(ctx, cacheKey(CacheStats, q), statsTTL, useCache && first, first, "/api/stats?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var s Stats
	return &s, decode(unwrap(raw), &s, "stats")
}

// Leads lists submitted leads. Only the first page without filters is
// cached, for three minutes.
func (g *Gateway) Leads(ctx context.Context, lq LeadsQuery, useCache bool) (*LeadPage, error) {
	lq.defaults()
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(lq.PerPage))
	q.Set("page", strconv.Itoa(lq.Page))
	if lq.Search != "" {
		q.Set("search", lq.Search)
	}
	if lq.Platform != "" {
		q.Set("platform", lq.Platform)
	}
	if lq.Status != "" {
		q.Set("status", lq.Status)
	}

	cacheable := lq.Page == 1 && !lq.filtered()
	raw, err := g.cached(ctx, cacheKey(CacheLeads, q), leadsTTL, useCache && cacheable, cacheable, "/api/leads?"+q.Encode())
	if err != nil {
		return nil, err
	}

	page := &LeadPage{}
	if err := decode(unwrap(raw, "leads"), &page.Leads, "leads"); err != nil {
		return nil, err
	}
	if p := unwrap(raw, "pagination"); !isNull(p) {
		_ = json.Unmarshal(p, &page.Pagination)
	}
	if page.Pagination.PerPage == 0 {
		page.Pagination = Pagination{CurrentPage: lq.Page, LastPage: 1, PerPage: lq.PerPage,
			Total: len(page.Leads), From: 1, To: len(page.Leads)}
	}
	if page.Leads == nil {
		page.Leads = []StoredLead{}
	}
	return page, nil
}
