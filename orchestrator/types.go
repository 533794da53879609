package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/leadsync/gateway"
	"github.com/hazyhaar/leadsync/handoff"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema"
)

// Status is a sync state.
type Status string

const (
	StatusPreparing  Status = "preparing"
	StatusNavigating Status = "navigating"
	StatusSearching  Status = "searching"
	StatusExtracting Status = "extracting"
	StatusSubmitting Status = "submitting"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition follows s.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusError }

// Config describes one sync. Keywords are replaced by the server-provided
// search terms once the campaign context is loaded.
type Config struct {
	CampaignID         int64             `json:"campaignId"`
	Platform           pagetype.Platform `json:"platform"`
	Keywords           []string          `json:"keywords"`
	Offering           string            `json:"offering"`
	IntelligentMode    bool              `json:"intelligentMode"`
	MaxLeadsPerKeyword int               `json:"maxLeadsPerKeyword,omitempty"`
	Subreddits         []string          `json:"subreddits,omitempty"`
}

// Progress is the snapshot pushed to the observer on every transition.
type Progress struct {
	Status              Status `json:"status"`
	CurrentKeyword      string `json:"currentKeyword"`
	CurrentKeywordIndex int    `json:"currentKeywordIndex"`
	TotalKeywords       int    `json:"totalKeywords"`
	LeadsFound          int    `json:"leadsFound"`
	LeadsSubmitted      int    `json:"leadsSubmitted"`
	Message             string `json:"message"`
	Error               string `json:"error,omitempty"`
}

// Observer receives progress snapshots synchronously. Its return is not
// awaited by anything.
type Observer func(Progress)

// Backend is the part of the gateway a sync needs.
type Backend interface {
	CampaignContext(ctx context.Context, campaignID int64) (*gateway.CampaignContext, error)
	RecordSyncStart(ctx context.Context, campaignID int64) (*gateway.SyncStart, error)
}

// Mailbox is the handoff slot.
type Mailbox interface {
	Post(ctx context.Context, rec *handoff.Record) error
	Take(ctx context.Context) (*handoff.Record, error)
}

// PageOpener opens the page the sync continues in.
type PageOpener interface {
	OpenPage(ctx context.Context, url string) error
}

// Extractor runs the search, extract and submit loop for one platform.
type Extractor interface {
	Sync(ctx context.Context) error
	LeadsFound() int
	LeadsSubmitted() int
}

// ExtractorFactory builds the extractor of a platform. schemas holds the
// page-type schemas of that platform only.
type ExtractorFactory func(cfg Config, schemas schema.Map, t *Tracker) (Extractor, error)

// ErrAborted is returned by Start and Resume after Abort.
var ErrAborted = errors.New("orchestrator: sync aborted by user")

// ConfigError is a sync that cannot start for lack of configuration.
type ConfigError struct {
	Platform pagetype.Platform
	Message  string
}

func (e *ConfigError) Error() string { return e.Message }

// QuotaError is a failed sync registration. The sync stops without retry.
type QuotaError struct {
	CampaignID int64
	Message    string
	Err        error
}

func (e *QuotaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sync registration failed for campaign %d: %v", e.CampaignID, e.Err)
	}
	return fmt.Sprintf("sync registration refused for campaign %d: %s", e.CampaignID, e.Message)
}

func (e *QuotaError) Unwrap() error { return e.Err }

func missingSchema(p pagetype.Platform) *ConfigError {
	return &ConfigError{Platform: p, Message: fmt.Sprintf("Schema not configured for %s. Please create a schema in DEV mode first.", p)}
}
