// Package schema is the versioned registry of extraction schemas: for each
// (platform, page type), the ordered set of named selectors an extractor
// reads a page with.
//
// Importing a document deactivates the current elements instead of deleting
// them, and every element create, update and delete appends a history
// record in the same transaction. The history answers "what did this schema
// look like when the scraper last worked".
//
// Usage:
//
//	r, err := schema.New(&schema.Config{DBPath: "schemas.db"}, logger)
//	defer r.Close()
//	els, err := r.ForPlatform(ctx, pagetype.Reddit, pagetype.SearchList)
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/leadsync/kit"
	"github.com/hazyhaar/leadsync/pagetype"
	"github.com/hazyhaar/leadsync/schema/internal/store"
)

// Registry is the schema registry.
type Registry struct {
	store  *store.Store
	logger *slog.Logger
	config *Config
}

// New opens the registry database and applies its schema.
func New(cfg *Config, logger *slog.Logger) (*Registry, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Registry{store: s, logger: logger, config: cfg}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.store.Close()
}

// ForPlatform returns the active elements of a schema in order.
func (r *Registry) ForPlatform(ctx context.Context, platform pagetype.Platform, pageType pagetype.PageType) ([]*Element, error) {
	return r.store.ActiveElements(ctx, string(platform), string(pageType))
}

// Export returns the active schema as a portable document. The version is
// that of the first active element, or DefaultVersion for an empty schema.
func (r *Registry) Export(ctx context.Context, platform pagetype.Platform, pageType pagetype.PageType) (*Document, error) {
	els, err := r.ForPlatform(ctx, platform, pageType)
	if err != nil {
		return nil, fmt.Errorf("schema: export: %w", err)
	}

	doc := &Document{
		Platform: string(platform),
		PageType: string(pageType),
		Version:  DefaultVersion,
		Elements: make([]DocumentElement, 0, len(els)),
	}
	if len(els) > 0 {
		doc.Version = els[0].Version
	}
	for _, e := range els {
		doc.Elements = append(doc.Elements, DocumentElement{
			ElementType:   e.ElementType,
			CSSSelector:   e.CSSSelector,
			XPathSelector: e.XPathSelector,
			IsRequired:    e.IsRequired,
			FallbackValue: e.FallbackValue,
			ParentElement: e.ParentElement,
			Multiple:      e.Multiple,
			Description:   e.Description,
		})
	}
	return doc, nil
}

// ImportResult summarises an import.
type ImportResult struct {
	Platform    string `json:"platform"`
	PageType    string `json:"page_type"`
	Version     string `json:"version"`
	Imported    int    `json:"imported"`
	Deactivated int    `json:"deactivated"`
}

// Import validates doc, deactivates the current elements of its key and
// inserts doc's elements as the active set, ordered by array position.
// Nothing is written when validation fails.
func (r *Registry) Import(ctx context.Context, doc *Document) (*ImportResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	version := doc.Version
	if version == "" {
		version = DefaultVersion
	}

	res := &ImportResult{Platform: doc.Platform, PageType: doc.PageType, Version: version}
	err := r.store.InTx(ctx, kit.GetUserID(ctx), func(tx *store.Tx) error {
		n, err := tx.Deactivate(ctx, doc.Platform, doc.PageType, "Deactivated by import of version "+version)
		if err != nil {
			return err
		}
		res.Deactivated = n

		for i, de := range doc.Elements {
			e := &Element{
				Platform:      doc.Platform,
				PageType:      doc.PageType,
				ElementType:   de.ElementType,
				CSSSelector:   de.CSSSelector,
				XPathSelector: de.XPathSelector,
				IsRequired:    de.IsRequired,
				FallbackValue: de.FallbackValue,
				ParentElement: de.ParentElement,
				Multiple:      de.Multiple,
				IsWrapper:     IsWrapperType(de.ElementType),
				Version:       version,
				IsActive:      true,
				Description:   de.Description,
				Order:         i,
			}
			if err := tx.Insert(ctx, e, "Schema element created"); err != nil {
				return err
			}
		}
		res.Imported = len(doc.Elements)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schema: import: %w", err)
	}

	r.logger.Info("schema: imported",
		"platform", res.Platform, "page_type", res.PageType, "version", res.Version,
		"imported", res.Imported, "deactivated", res.Deactivated)
	return res, nil
}

// CreateElement adds one element to a schema. An active element joins the
// active version of its key: an empty Version adopts it and a different one
// is rejected with a ValidationError.
func (r *Registry) CreateElement(ctx context.Context, e *Element) error {
	if err := validateElement(e); err != nil {
		return err
	}
	e.IsWrapper = e.IsWrapper || IsWrapperType(e.ElementType)
	return r.store.InTx(ctx, kit.GetUserID(ctx), func(tx *store.Tx) error {
		if err := checkActiveVersion(ctx, tx, e); err != nil {
			return err
		}
		return tx.Insert(ctx, e, "Schema element created")
	})
}

// UpdateElement replaces a stored element. An empty Version keeps the
// stored one; activation follows the rule of CreateElement. Returns
// ErrNotFound for an unknown ID.
func (r *Registry) UpdateElement(ctx context.Context, e *Element) error {
	if err := validateElement(e); err != nil {
		return err
	}
	return r.store.InTx(ctx, kit.GetUserID(ctx), func(tx *store.Tx) error {
		old, err := tx.Get(ctx, e.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return ErrNotFound
		}
		if e.Version == "" {
			e.Version = old.Version
		}
		if err := checkActiveVersion(ctx, tx, e); err != nil {
			return err
		}
		_, err = tx.Update(ctx, e, "Schema element updated")
		return err
	})
}

// checkActiveVersion keeps a single active version per key. Switching
// versions is Import's job.
func checkActiveVersion(ctx context.Context, tx *store.Tx, e *Element) error {
	versions, err := tx.ActiveVersions(ctx, e.Platform, e.PageType, e.ID)
	if err != nil {
		return err
	}
	if e.Version == "" {
		e.Version = DefaultVersion
		if e.IsActive && len(versions) > 0 {
			e.Version = versions[0]
		}
	}
	if !e.IsActive {
		return nil
	}
	for _, v := range versions {
		if v != e.Version {
			return &ValidationError{Problems: []string{fmt.Sprintf(
				"version %q cannot be active next to active version %q of %s/%s; import a document to switch versions",
				e.Version, v, e.Platform, e.PageType)}}
		}
	}
	return nil
}

// DeleteElement removes an element. Its history stays.
func (r *Registry) DeleteElement(ctx context.Context, id string) error {
	return r.store.InTx(ctx, kit.GetUserID(ctx), func(tx *store.Tx) error {
		ok, err := tx.Delete(ctx, id, "Schema element deleted")
		if err == nil && !ok {
			return ErrNotFound
		}
		return err
	})
}

// GetElement returns an element by ID, nil when absent.
func (r *Registry) GetElement(ctx context.Context, id string) (*Element, error) {
	return r.store.GetElement(ctx, id)
}

// History returns change records, oldest first.
func (r *Registry) History(ctx context.Context, f HistoryFilter) ([]*HistoryRecord, error) {
	return r.store.History(ctx, f)
}

// VersionElements returns every element stored under a version, active or not.
func (r *Registry) VersionElements(ctx context.Context, platform pagetype.Platform, pageType pagetype.PageType, version string) ([]*Element, error) {
	return r.store.ElementsByVersion(ctx, string(platform), string(pageType), version)
}

// ActiveKeys lists the schemas that currently have active elements.
func (r *Registry) ActiveKeys(ctx context.Context) ([]ActiveKey, error) {
	return r.store.ActiveKeys(ctx)
}

// SchemaMap returns every active schema in the Map shape, optionally
// restricted to platforms.
func (r *Registry) SchemaMap(ctx context.Context, platforms ...pagetype.Platform) (Map, error) {
	keys, err := r.store.ActiveKeys(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		want[string(p)] = true
	}

	m := Map{}
	for _, k := range keys {
		if len(want) > 0 && !want[k.Platform] {
			continue
		}
		els, err := r.store.ActiveElements(ctx, k.Platform, k.PageType)
		if err != nil {
			return nil, err
		}
		if m[k.Platform] == nil {
			m[k.Platform] = map[string]map[string]Entry{}
		}
		entries := make(map[string]Entry, len(els))
		for _, e := range els {
			entries[e.ElementType] = Entry{
				CSSSelector:   e.CSSSelector,
				XPathSelector: e.XPathSelector,
				IsRequired:    e.IsRequired,
				FallbackValue: e.FallbackValue,
				ParentElement: e.ParentElement,
				Multiple:      e.Multiple,
			}
		}
		m[k.Platform][k.PageType] = entries
	}
	return m, nil
}
