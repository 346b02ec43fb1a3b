package journal

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

-- One row per applied instruction
CREATE TABLE IF NOT EXISTS edits (
    edit_id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL DEFAULT '',
    instruction TEXT NOT NULL,
    action TEXT NOT NULL,
    method TEXT NOT NULL,          -- ai | fallback
    intent_json TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    changes INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL    -- unix nanoseconds
);

CREATE INDEX IF NOT EXISTS idx_edits_session ON edits(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_edits_action ON edits(action);
`
