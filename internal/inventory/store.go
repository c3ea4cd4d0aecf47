// Package inventory is the SQLite-backed ad campaign store. The store is
// constructed once at startup and injected into the pipeline; there is no
// process-global client.
package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"adintel/internal/logging"
	"adintel/internal/types"
)

// Store wraps the ad_campaigns database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the campaign database at path and runs
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("inventory: open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("inventory: %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("opened campaign store at %s", path)
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ad_campaigns (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		company          TEXT NOT NULL DEFAULT '',
		tagline          TEXT NOT NULL DEFAULT '',
		image_url        TEXT NOT NULL DEFAULT '',
		company_persona  TEXT NOT NULL DEFAULT '',
		strictly_against TEXT NOT NULL DEFAULT '',
		categories       TEXT NOT NULL DEFAULT '[]',
		created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ad_campaigns_created ON ad_campaigns(created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("inventory: migrate: %w", err)
	}
	return nil
}

// Insert stores a candidate, assigning an ID when absent. Returns the ID.
func (s *Store) Insert(ctx context.Context, c types.Candidate) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cats, err := json.Marshal(c.Categories)
	if err != nil {
		return "", fmt.Errorf("inventory: marshal categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ad_campaigns
			(id, title, description, company, tagline, image_url, company_persona, strictly_against, categories, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, c.Company, c.Tagline, c.ImageURL,
		c.CompanyPersona, c.StrictlyAgainst, string(cats), time.Now().UTC())
	if err != nil {
		logging.StoreError("insert campaign %s: %v", c.ID, err)
		return "", fmt.Errorf("inventory: insert: %w", err)
	}
	return c.ID, nil
}

// Count returns the number of stored campaigns.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ad_campaigns").Scan(&n); err != nil {
		return 0, fmt.Errorf("inventory: count: %w", err)
	}
	return n, nil
}

// FetchRecent returns the most recently created campaigns, newest first.
func (s *Store) FetchRecent(ctx context.Context, limit int) ([]types.Candidate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, company, tagline, image_url, company_persona, strictly_against, categories
		FROM ad_campaigns
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("inventory: fetch recent: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// FetchRelevant returns campaigns matching the persona: soft topic match
// against title/description in SQL, category intersection applied in Go.
// Falls back to FetchRecent when the persona gives nothing to filter on.
func (s *Store) FetchRelevant(ctx context.Context, persona types.PersonaContext, limit int) ([]types.Candidate, error) {
	if limit <= 0 {
		limit = 50
	}
	topic := strings.TrimSpace(persona.GeneralTopic)
	categories := persona.Categories
	if topic == "" && len(categories) == 0 {
		return s.FetchRecent(ctx, limit)
	}

	query := `
		SELECT id, title, description, company, tagline, image_url, company_persona, strictly_against, categories
		FROM ad_campaigns`
	var args []interface{}
	if topic != "" {
		query += " WHERE title LIKE ? OR description LIKE ?"
		pattern := "%" + topic + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: fetch relevant: %w", err)
	}
	defer rows.Close()

	candidates, err := scanCandidates(rows)
	if err != nil {
		return nil, err
	}

	if len(categories) > 0 {
		filtered := candidates[:0]
		for _, c := range candidates {
			if intersects(c.Categories, categories) {
				filtered = append(filtered, c)
			}
		}
		// An over-tight category filter should widen, not empty, the pool.
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	logging.Store("fetched %d relevant campaigns (topic=%q)", len(candidates), topic)
	return candidates, nil
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[strings.ToLower(strings.TrimSpace(v))]; ok {
			return true
		}
	}
	return false
}

func scanCandidates(rows *sql.Rows) ([]types.Candidate, error) {
	var out []types.Candidate
	for rows.Next() {
		var c types.Candidate
		var cats string
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Company, &c.Tagline,
			&c.ImageURL, &c.CompanyPersona, &c.StrictlyAgainst, &cats); err != nil {
			return nil, fmt.Errorf("inventory: scan: %w", err)
		}
		if cats != "" {
			if err := json.Unmarshal([]byte(cats), &c.Categories); err != nil {
				logging.StoreError("campaign %s has bad categories %q: %v", c.ID, cats, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: rows: %w", err)
	}
	return out, nil
}
