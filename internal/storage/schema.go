package storage

// Schema is applied on every open; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS rules (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    enabled         INTEGER NOT NULL DEFAULT 1,
    logic_operator  TEXT NOT NULL DEFAULT 'AND',
    conditions      TEXT NOT NULL DEFAULT '[]',
    actions         TEXT NOT NULL DEFAULT '[]',
    execution_count INTEGER NOT NULL DEFAULT 0,
    last_executed   TEXT,
    created_at      TEXT NOT NULL,
    last_modified   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sender_scores (
    email      TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    score      REAL NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS score_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    email      TEXT NOT NULL,
    points     REAL NOT NULL,
    email_id   TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_events_email ON score_events(email);

CREATE TABLE IF NOT EXISTS markers (
    bucket     TEXT NOT NULL,
    email_id   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (bucket, email_id)
);

CREATE TABLE IF NOT EXISTS link_summaries (
    key          TEXT PRIMARY KEY,
    summary      TEXT NOT NULL,
    source_body  TEXT NOT NULL DEFAULT '',
    source_label TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS debug_log (
    id        TEXT PRIMARY KEY,
    email_id  TEXT NOT NULL,
    subject   TEXT NOT NULL DEFAULT '',
    sender    TEXT NOT NULL DEFAULT '',
    timestamp TEXT NOT NULL,
    entry     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_debug_log_timestamp ON debug_log(timestamp);
`
