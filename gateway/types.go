package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/leadsync/auth"
	"github.com/hazyhaar/leadsync/schema"
)

// Campaign is a lead-generation campaign.
type Campaign struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Platforms          []string `json:"platforms"`
	Keywords           []string `json:"keywords"`
	Offering           string   `json:"offering,omitempty"`
	FacebookGroups     []string `json:"facebook_groups,omitempty"`
	RedditSubreddits   []string `json:"reddit_subreddits,omitempty"`
	LinkedInGroups     []string `json:"linkedin_groups,omitempty"`
	TwitterCommunities []string `json:"twitter_communities,omitempty"`
	Status             string   `json:"status"`
}

// Lead is the submission shape of a discovered post.
type Lead struct {
	Platform        string   `json:"platform"`
	PlatformID      string   `json:"platform_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	URL             string   `json:"url"`
	Author          string   `json:"author"`
	MatchedKeywords []string `json:"matched_keywords"`
	ConfidenceScore float64  `json:"confidence_score"`

	FacebookGroup    string `json:"facebook_group,omitempty"`
	Subreddit        string `json:"subreddit,omitempty"`
	LinkedInGroup    string `json:"linkedin_group,omitempty"`
	TwitterCommunity string `json:"twitter_community,omitempty"`
	FiverrGigID      string `json:"fiverr_gig_id,omitempty"`
	UpworkJobID      string `json:"upwork_job_id,omitempty"`
}

// StoredLead is a lead as listed by the backend.
type StoredLead struct {
	ID int64 `json:"id"`
	Lead
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Pagination is the backend's page descriptor.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// LeadPage is one page of GET /api/leads.
type LeadPage struct {
	Leads      []StoredLead `json:"leads"`
	Pagination Pagination   `json:"pagination"`
}

// LeadsQuery filters GET /api/leads. "all" and "" mean no filter.
type LeadsQuery struct {
	PerPage  int
	Page     int
	Search   string
	Platform string
	Status   string
}

func (q *LeadsQuery) defaults() {
	if q.PerPage <= 0 {
		q.PerPage = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Platform == "all" {
		q.Platform = ""
	}
	if q.Status == "all" {
		q.Status = ""
	}
}

func (q LeadsQuery) filtered() bool {
	return q.Search != "" || q.Platform != "" || q.Status != ""
}

// Activity is one entry of the stats activity feed.
type Activity struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalLeads      int            `json:"totalLeads"`
	LeadsByPlatform map[string]int `json:"leadsByPlatform"`
	ActiveCampaigns int            `json:"activeCampaigns"`
	RecentActivity  struct {
		Data        []Activity `json:"data"`
		CurrentPage int        `json:"current_page"`
		PerPage     int        `json:"per_page"`
		Total       int        `json:"total"`
		LastPage    int        `json:"last_page"`
	} `json:"recentActivity"`
}

// Plan is a subscription plan.
type Plan struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Features         []string `json:"features"`
	CampaignsLimit   int      `json:"campaigns_limit"`
	LeadsPerSync     int      `json:"leads_per_sync"`
	ManualSyncsLimit int      `json:"manual_syncs_limit"`
	LeadsLimit       int      `json:"leads_limit"`
	Active           bool     `json:"active"`
}

// Subscription is the account's plan and usage.
type Subscription struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	PlanID          int64  `json:"plan_id"`
	Status          string `json:"status"`
	TrialEndsAt     string `json:"trial_ends_at,omitempty"`
	EndsAt          string `json:"ends_at,omitempty"`
	Plan            *Plan  `json:"plan,omitempty"`
	UsedCampaigns   int    `json:"used_campaigns"`
	UsedManualSyncs int    `json:"used_manual_syncs"`
	UsedLeads       int    `json:"used_leads"`
}

// Usage is a used/limit pair.
type Usage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// PlanValidation is the answer of GET /api/auth/validate-plan.
type PlanValidation struct {
	Valid        bool          `json:"valid"`
	Subscription *Subscription `json:"subscription"`
	Limits       struct {
		Campaigns Usage `json:"campaigns"`
		Syncs     Usage `json:"syncs"`
	} `json:"limits"`
}

// LoginResult is the answer of POST /api/auth/login.
type LoginResult struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

// CampaignContext is everything a sync needs: the campaign, its server-side
// search terms and the schemas of every platform.
type CampaignContext struct {
	Success     bool            `json:"success"`
	Campaign    *Campaign       `json:"campaign"`
	SearchTerms []string        `json:"search_terms"`
	Schemas     json.RawMessage `json:"schemas"`
}

// SchemaMap decodes Schemas. An empty JSON array, as some backends send for
// an empty map, decodes to an empty Map.
func (c *CampaignContext) SchemaMap() (schema.Map, error) {
	raw := bytes.TrimSpace(c.Schemas)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("[]")) {
		return schema.Map{}, nil
	}
	var m schema.Map
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("gateway: decode schemas: %w", err)
	}
	return m, nil
}

// LeadValidation is the relevance verdict for a lead.
type LeadValidation struct {
	Success    bool    `json:"success"`
	IsRelevant bool    `json:"is_relevant"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// SyncStart is the answer of the quota registration call.
type SyncStart struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LeadMessage records an outreach message sent to a lead.
type LeadMessage struct {
	LeadID            int64          `json:"-"`
	Platform          string         `json:"platform"`
	Channel           string         `json:"channel"` // direct_message, comment, post_reply
	MessageText       string         `json:"message_text"`
	SentVia           string         `json:"sent_via"` // extension_automation, manual
	PlatformMessageID string         `json:"platform_message_id,omitempty"`
	RecipientURL      string         `json:"recipient_url,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// RecordedMessage is the answer of a lead message registration.
type RecordedMessage struct {
	Success   bool   `json:"success"`
	MessageID int64  `json:"message_id"`
	Message   string `json:"message"`
}

// TokenValidation is the answer of GET /api/extension/validate-token.
type TokenValidation struct {
	Valid bool       `json:"valid"`
	User  *auth.User `json:"user,omitempty"`
}

// DeliveryStatus tags a Delivery.
type DeliveryStatus string

const (
	Delivered DeliveryStatus = "delivered"
	Queued    DeliveryStatus = "queued"
	Failed    DeliveryStatus = "failed"
)

// Delivery is the outcome of a lead submission. Err is set only when
// Status is Failed.
type Delivery struct {
	Status DeliveryStatus
	Err    error
}
