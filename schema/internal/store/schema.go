package store

// Schema contains the DDL for the schema registry tables.
const Schema = `
-- Extraction points per (platform, page_type). Old versions stay with is_active = 0.
CREATE TABLE IF NOT EXISTS schema_elements (
    id              TEXT PRIMARY KEY,
    platform        TEXT NOT NULL,
    page_type       TEXT NOT NULL,
    element_type    TEXT NOT NULL,
    css_selector    TEXT NOT NULL DEFAULT '',
    xpath_selector  TEXT,
    is_required     INTEGER NOT NULL DEFAULT 0,
    fallback_value  TEXT,
    parent_element  TEXT,
    multiple        INTEGER NOT NULL DEFAULT 0,
    is_wrapper      INTEGER NOT NULL DEFAULT 0,
    version         TEXT NOT NULL DEFAULT '1.0.0',
    is_active       INTEGER NOT NULL DEFAULT 1,
    description     TEXT NOT NULL DEFAULT '',
    sort_order      INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_elements_active ON schema_elements(platform, page_type, is_active, sort_order);
CREATE INDEX IF NOT EXISTS idx_elements_version ON schema_elements(platform, page_type, version);

-- Append-only change log. No foreign key: history outlives deleted elements.
CREATE TABLE IF NOT EXISTS schema_history (
    id              TEXT PRIMARY KEY,
    element_id      TEXT NOT NULL,
    platform        TEXT NOT NULL,
    page_type       TEXT NOT NULL,
    action          TEXT NOT NULL CHECK (action IN ('created', 'updated', 'deleted')),
    old_data        TEXT,
    new_data        TEXT,
    version         TEXT NOT NULL,
    actor           TEXT NOT NULL DEFAULT '',
    note            TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_element ON schema_history(element_id, created_at);
CREATE INDEX IF NOT EXISTS idx_history_key ON schema_history(platform, page_type, version, created_at);

CREATE TRIGGER IF NOT EXISTS schema_history_no_update
BEFORE UPDATE ON schema_history
BEGIN
    SELECT RAISE(ABORT, 'schema_history is append-only');
END;

CREATE TRIGGER IF NOT EXISTS schema_history_no_delete
BEFORE DELETE ON schema_history
BEGIN
    SELECT RAISE(ABORT, 'schema_history is append-only');
END;
`
