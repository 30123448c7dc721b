// SPDX-License-Identifier: MIT

// Package diary persists work-diary entries in Postgres with a short-TTL
// KV cache on per-owner listings.
package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/teletable/backend/internal/cache"
	"github.com/teletable/backend/internal/log"
)

// ErrNotFound is returned when no entry matches id and owner.
var ErrNotFound = errors.New("diary entry not found")

// Entry is one stored diary record.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	Owner          uuid.UUID `json:"owner"`
	WorkingMinutes int32     `json:"working_minutes"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store provides diary persistence over a pgx pool.
type Store struct {
	pool     *pgxpool.Pool
	kv       cache.Cache
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewStore wires a store over the given pool and KV cache.
func NewStore(pool *pgxpool.Pool, kv cache.Cache, cacheTTL time.Duration) *Store {
	return &Store{
		pool:     pool,
		kv:       kv,
		cacheTTL: cacheTTL,
		logger:   log.WithComponent("diary"),
	}
}

func ownerKey(owner uuid.UUID) string {
	return "diary:owner:" + owner.String()
}

const entryColumns = "id, owner, working_minutes, text, created_at, updated_at"

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Owner, &e.WorkingMinutes, &e.Text, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts a new entry for the owner and invalidates their listing
// cache.
func (s *Store) Create(ctx context.Context, owner uuid.UUID, workingMinutes int32, text string) (Entry, error) {
	row := s.pool.QueryRow(ctx,
		"INSERT INTO diary_entries (id, owner, working_minutes, text) VALUES ($1, $2, $3, $4) RETURNING "+entryColumns,
		uuid.New(), owner, workingMinutes, text)
	e, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("insert diary entry: %w", err)
	}
	s.kv.Delete(ctx, ownerKey(owner))
	return e, nil
}

// GetByID returns the entry only if it belongs to owner.
func (s *Store) GetByID(ctx context.Context, owner, id uuid.UUID) (Entry, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+entryColumns+" FROM diary_entries WHERE id = $1 AND owner = $2", id, owner)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query diary entry: %w", err)
	}
	return e, nil
}

// ListByOwner returns the owner's entries newest first, consulting the KV
// cache.
func (s *Store) ListByOwner(ctx context.Context, owner uuid.UUID) ([]Entry, error) {
	if raw, ok := s.kv.Get(ctx, ownerKey(owner)); ok {
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
	}

	entries, err := s.list(ctx, "SELECT "+entryColumns+" FROM diary_entries WHERE owner = $1 ORDER BY created_at DESC", owner)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(entries); err == nil {
		s.kv.Set(ctx, ownerKey(owner), raw, s.cacheTTL)
	}
	return entries, nil
}

// ListAll returns every entry newest first.
func (s *Store) ListAll(ctx context.Context) ([]Entry, error) {
	return s.list(ctx, "SELECT "+entryColumns+" FROM diary_entries ORDER BY created_at DESC")
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list diary entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diary entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the entry if it belongs to owner.
func (s *Store) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM diary_entries WHERE id = $1 AND owner = $2", id, owner)
	if err != nil {
		return fmt.Errorf("delete diary entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.kv.Delete(ctx, ownerKey(owner))
	return nil
}
