package store

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS lessons (
	token      TEXT PRIMARY KEY,
	topic      TEXT NOT NULL,
	plan       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS lesson_summaries (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	token            TEXT NOT NULL REFERENCES lessons(token) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	session_id       TEXT NOT NULL,
	start_time       INTEGER NOT NULL,
	duration_minutes INTEGER NOT NULL,
	rating           INTEGER NOT NULL DEFAULT 0,
	score            REAL
);
CREATE INDEX IF NOT EXISTS idx_lesson_summaries_token ON lesson_summaries(token, position);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	lesson_token   TEXT NOT NULL,
	start_time     INTEGER NOT NULL,
	end_time       INTEGER,
	step           INTEGER NOT NULL,
	workflow_len   INTEGER NOT NULL,
	turns          TEXT NOT NULL,
	quiz_responses TEXT NOT NULL,
	score          REAL,
	rating         INTEGER,
	closed         INTEGER NOT NULL DEFAULT 0,
	updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(closed, end_time, updated_at);

CREATE TABLE IF NOT EXISTS llm_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     INTEGER NOT NULL,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	purpose       TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	latency_ms    INTEGER NOT NULL,
	success       INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	request_body  TEXT NOT NULL DEFAULT '',
	response_body TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_llm_events_purpose ON llm_events(purpose);
`

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
