package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/leadsync/idgen"
)

// Element is one named extraction point of a (platform, page_type) schema.
type Element struct {
	ID            string  `json:"id"`
	Platform      string  `json:"platform"`
	PageType      string  `json:"page_type"`
	ElementType   string  `json:"element_type"`
	CSSSelector   string  `json:"css_selector"`
	XPathSelector *string `json:"xpath_selector"`
	IsRequired    bool    `json:"is_required"`
	FallbackValue *string `json:"fallback_value"`
	ParentElement *string `json:"parent_element"` // element_type of the container
	Multiple      bool    `json:"multiple"`
	IsWrapper     bool    `json:"is_wrapper"`
	Version       string  `json:"version"`
	IsActive      bool    `json:"is_active"`
	Description   string  `json:"description"`
	Order         int     `json:"order"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

var newElementID = idgen.Prefixed("el_", idgen.Default)

const elementColumns = `id, platform, page_type, element_type, css_selector, xpath_selector,
	is_required, fallback_value, parent_element, multiple, is_wrapper, version,
	is_active, description, sort_order, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElement(row rowScanner) (*Element, error) {
	e := &Element{}
	var xpath, fallback, parent sql.NullString
	err := row.Scan(
		&e.ID, &e.Platform, &e.PageType, &e.ElementType, &e.CSSSelector, &xpath,
		&e.IsRequired, &fallback, &parent, &e.Multiple, &e.IsWrapper, &e.Version,
		&e.IsActive, &e.Description, &e.Order, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.XPathSelector = nullable(xpath)
	e.FallbackValue = nullable(fallback)
	e.ParentElement = nullable(parent)
	return e, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func scanElements(rows *sql.Rows) ([]*Element, error) {
	var out []*Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetElement retrieves an element by ID. Returns nil, nil when absent.
func (s *Store) GetElement(ctx context.Context, id string) (*Element, error) {
	e, err := scanElement(s.DB.QueryRowContext(ctx,
		`SELECT `+elementColumns+` FROM schema_elements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// ActiveElements returns the active elements of a key in schema order.
func (s *Store) ActiveElements(ctx context.Context, platform, pageType string) ([]*Element, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+elementColumns+` FROM schema_elements
		WHERE platform = ? AND page_type = ? AND is_active = 1
		ORDER BY sort_order, created_at`, platform, pageType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanElements(rows)
}

// ElementsByVersion returns every element of a key stored under version,
// active or not.
func (s *Store) ElementsByVersion(ctx context.Context, platform, pageType, version string) ([]*Element, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+elementColumns+` FROM schema_elements
		WHERE platform = ? AND page_type = ? AND version = ?
		ORDER BY sort_order, created_at`, platform, pageType, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanElements(rows)
}

// ActiveKey is a (platform, page_type) pair with an active schema.
type ActiveKey struct {
	Platform string `json:"platform"`
	PageType string `json:"page_type"`
	Version  string `json:"version"`
	Elements int    `json:"elements"`
}

// ActiveKeys lists every key that has active elements.
func (s *Store) ActiveKeys(ctx context.Context) ([]ActiveKey, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT platform, page_type, MIN(version), COUNT(*)
		FROM schema_elements WHERE is_active = 1
		GROUP BY platform, page_type
		ORDER BY platform, page_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveKey
	for rows.Next() {
		var k ActiveKey
		if err := rows.Scan(&k.Platform, &k.PageType, &k.Version, &k.Elements); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Tx is a registry transaction. Its mutating methods are the only writers
// of schema_elements and each one appends a history record.
type Tx struct {
	tx    *sql.Tx
	actor string
}

// Insert creates e, assigning ID and timestamps when unset.
func (t *Tx) Insert(ctx context.Context, e *Element, note string) error {
	now := time.Now().UnixMilli()
	if e.ID == "" {
		e.ID = newElementID()
	}
	if e.Version == "" {
		e.Version = "1.0.0"
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO schema_elements (`+elementColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Platform, e.PageType, e.ElementType, e.CSSSelector, e.XPathSelector,
		e.IsRequired, e.FallbackValue, e.ParentElement, e.Multiple, e.IsWrapper, e.Version,
		e.IsActive, e.Description, e.Order, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert element: %w", err)
	}
	return t.log(ctx, ActionCreated, nil, e, note)
}

// Update overwrites the stored element with e. Returns false when e.ID does
// not exist.
func (t *Tx) Update(ctx context.Context, e *Element, note string) (bool, error) {
	old, err := t.get(ctx, e.ID)
	if err != nil || old == nil {
		return false, err
	}
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = time.Now().UnixMilli()

	_, err = t.tx.ExecContext(ctx, `
		UPDATE schema_elements SET
			platform = ?, page_type = ?, element_type = ?, css_selector = ?, xpath_selector = ?,
			is_required = ?, fallback_value = ?, parent_element = ?, multiple = ?, is_wrapper = ?,
			version = ?, is_active = ?, description = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		e.Platform, e.PageType, e.ElementType, e.CSSSelector, e.XPathSelector,
		e.IsRequired, e.FallbackValue, e.ParentElement, e.Multiple, e.IsWrapper,
		e.Version, e.IsActive, e.Description, e.Order, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update element: %w", err)
	}
	return true, t.log(ctx, ActionUpdated, old, e, note)
}

// Deactivate marks every active element of a key inactive, one history
// record per element. Returns the number of elements changed.
func (t *Tx) Deactivate(ctx context.Context, platform, pageType, note string) (int, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+elementColumns+` FROM schema_elements
		WHERE platform = ? AND page_type = ? AND is_active = 1
		ORDER BY sort_order`, platform, pageType)
	if err != nil {
		return 0, err
	}
	active, err := scanElements(rows)
	rows.Close()
	if err != nil {
		return 0, err
	}

	for _, old := range active {
		next := *old
		next.IsActive = false
		if _, err := t.Update(ctx, &next, note); err != nil {
			return 0, err
		}
	}
	return len(active), nil
}

// Delete removes an element. Returns false when it does not exist.
func (t *Tx) Delete(ctx context.Context, id, note string) (bool, error) {
	old, err := t.get(ctx, id)
	if err != nil || old == nil {
		return false, err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM schema_elements WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete element: %w", err)
	}
	return true, t.log(ctx, ActionDeleted, old, nil, note)
}

// Get reads an element inside the transaction. Returns nil, nil when absent.
func (t *Tx) Get(ctx context.Context, id string) (*Element, error) {
	return t.get(ctx, id)
}

// ActiveVersions returns the distinct versions of the active elements of a
// key, leaving out element exceptID.
func (t *Tx) ActiveVersions(ctx context.Context, platform, pageType, exceptID string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT version FROM schema_elements
		WHERE platform = ? AND page_type = ? AND is_active = 1 AND id <> ?
		ORDER BY version`, platform, pageType, exceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *Tx) get(ctx context.Context, id string) (*Element, error) {
	e, err := scanElement(t.tx.QueryRowContext(ctx,
		`SELECT `+elementColumns+` FROM schema_elements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func snapshot(e *Element) (*string, error) {
	if e == nil {
		return nil, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
