package schema

import "github.com/hazyhaar/leadsync/schema/internal/store"

// Re-exported types from internal/store for use by cmd/ and other packages.
type (
	Element       = store.Element
	HistoryRecord = store.HistoryRecord
	HistoryFilter = store.HistoryFilter
	ActiveKey     = store.ActiveKey
)

// History actions.
const (
	ActionCreated = store.ActionCreated
	ActionUpdated = store.ActionUpdated
	ActionDeleted = store.ActionDeleted
)

// DefaultVersion is used when an imported document carries no version.
const DefaultVersion = "1.0.0"

// Document is the portable export/import form of one schema.
type Document struct {
	Platform string            `json:"platform"`
	PageType string            `json:"page_type"`
	Version  string            `json:"version,omitempty"`
	Elements []DocumentElement `json:"elements"`
}

// DocumentElement is one element of a Document.
type DocumentElement struct {
	ElementType   string  `json:"element_type"`
	CSSSelector   string  `json:"css_selector"`
	XPathSelector *string `json:"xpath_selector"`
	IsRequired    bool    `json:"is_required"`
	FallbackValue *string `json:"fallback_value"`
	ParentElement *string `json:"parent_element"`
	Multiple      bool    `json:"multiple"`
	Description   string  `json:"description"`
}

// Entry is the per-element shape served to extractors, keyed by element type.
type Entry struct {
	CSSSelector   string  `json:"css_selector"`
	XPathSelector *string `json:"xpath_selector"`
	IsRequired    bool    `json:"is_required"`
	FallbackValue *string `json:"fallback_value"`
	ParentElement *string `json:"parent_element"`
	Multiple      bool    `json:"multiple"`
}

// Map is platform -> page type -> element type -> Entry, the shape carried in
// a campaign context and in a sync handoff.
type Map map[string]map[string]map[string]Entry

// Has reports whether m holds a schema for the key.
func (m Map) Has(platform, pageType string) bool {
	return len(m[platform][pageType]) > 0
}

// Entries returns the schema for a key, nil when absent.
func (m Map) Entries(platform, pageType string) map[string]Entry {
	return m[platform][pageType]
}
