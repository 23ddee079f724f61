// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SEARCH INDEX
// =============================================================================

const indexSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	idx   INTEGER PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	session_idx INTEGER NOT NULL REFERENCES sessions(idx),
	position    INTEGER NOT NULL,
	body        TEXT NOT NULL,
	PRIMARY KEY (session_idx, position)
);
`

// SearchHit is one message matching a search term.
type SearchHit struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Message  string `json:"message"`
}

// SearchIndex is a SQLite mirror of the chat history used for substring
// search. The JSON document stays the source of truth; the index is
// rebuilt from it on demand.
type SearchIndex struct {
	db *sql.DB
}

// OpenSearchIndex opens (or creates) the index database at path.
// ":memory:" gives a throwaway index.
func OpenSearchIndex(path string) (*SearchIndex, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SearchIndex{db: db}, nil
}

// Rebuild replaces the index content with sessions.
func (x *SearchIndex) Rebuild(ctx context.Context, sessions []ChatSession) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return err
	}

	sessStmt, err := tx.PrepareContext(ctx, "INSERT INTO sessions (idx, title) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer sessStmt.Close()
	msgStmt, err := tx.PrepareContext(ctx, "INSERT INTO messages (session_idx, position, body) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer msgStmt.Close()

	for i, s := range sessions {
		if _, err := sessStmt.ExecContext(ctx, i, s.Title); err != nil {
			return fmt.Errorf("failed to index session %d: %w", i, err)
		}
		for pos, body := range s.Messages {
			if _, err := msgStmt.ExecContext(ctx, i, pos, body); err != nil {
				return fmt.Errorf("failed to index message %d/%d: %w", i, pos, err)
			}
		}
	}
	return tx.Commit()
}

// Search returns up to limit messages containing term (ASCII
// case-insensitive), ordered by session then position.
func (x *SearchIndex) Search(ctx context.Context, term string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT s.idx, s.title, m.position, m.body
		FROM messages m JOIN sessions s ON s.idx = m.session_idx
		WHERE m.body LIKE ? ESCAPE '\'
		ORDER BY s.idx, m.position
		LIMIT ?`, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Index, &h.Title, &h.Position, &h.Message); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Close closes the database.
func (x *SearchIndex) Close() error {
	return x.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
