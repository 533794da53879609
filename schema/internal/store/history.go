package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/leadsync/idgen"
)

// History actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// HistoryRecord is an immutable entry of the schema change log. OldData and
// NewData are JSON snapshots of the element; either may be null.
type HistoryRecord struct {
	ID        string          `json:"id"`
	ElementID string          `json:"element_id"`
	Platform  string          `json:"platform"`
	PageType  string          `json:"page_type"`
	Action    string          `json:"action"`
	OldData   json.RawMessage `json:"old_data"`
	NewData   json.RawMessage `json:"new_data"`
	Version   string          `json:"version"`
	Actor     string          `json:"actor,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// Old decodes the before-snapshot, or returns nil for a creation.
func (h *HistoryRecord) Old() (*Element, error) { return decodeSnapshot(h.OldData) }

// New decodes the after-snapshot, or returns nil for a deletion.
func (h *HistoryRecord) New() (*Element, error) { return decodeSnapshot(h.NewData) }

func decodeSnapshot(raw json.RawMessage) (*Element, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var e Element
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

var newHistoryID = idgen.Prefixed("hist_", idgen.Default)

func (t *Tx) log(ctx context.Context, action string, old, cur *Element, note string) error {
	oldData, err := snapshot(old)
	if err != nil {
		return err
	}
	newData, err := snapshot(cur)
	if err != nil {
		return err
	}

	ref := cur
	if ref == nil {
		ref = old
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO schema_history
			(id, element_id, platform, page_type, action, old_data, new_data, version, actor, note, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		newHistoryID(), ref.ID, ref.Platform, ref.PageType, action, oldData, newData,
		ref.Version, t.actor, note, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// HistoryFilter narrows a history query. Empty fields match everything.
type HistoryFilter struct {
	ElementID string
	Platform  string
	PageType  string
	Version   string
	Limit     int
}

// History returns matching records, oldest first.
func (s *Store) History(ctx context.Context, f HistoryFilter) ([]*HistoryRecord, error) {
	query := `SELECT id, element_id, platform, page_type, action, old_data, new_data,
	                 version, actor, note, created_at
	          FROM schema_history WHERE 1 = 1`
	var args []any
	if f.ElementID != "" {
		query += ` AND element_id = ?`
		args = append(args, f.ElementID)
	}
	if f.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, f.Platform)
	}
	if f.PageType != "" {
		query += ` AND page_type = ?`
		args = append(args, f.PageType)
	}
	if f.Version != "" {
		query += ` AND version = ?`
		args = append(args, f.Version)
	}
	query += ` ORDER BY created_at, rowid`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*HistoryRecord
	for rows.Next() {
		h := &HistoryRecord{}
		var oldData, newData sql.NullString
		if err := rows.Scan(&h.ID, &h.ElementID, &h.Platform, &h.PageType, &h.Action,
			&oldData, &newData, &h.Version, &h.Actor, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		if oldData.Valid {
			h.OldData = json.RawMessage(oldData.String)
		}
		if newData.Valid {
			h.NewData = json.RawMessage(newData.String)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
