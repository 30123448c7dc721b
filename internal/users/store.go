// SPDX-License-Identifier: MIT

// Package users persists user accounts in Postgres with a KV read-through
// cache for lookups by id.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/cache"
	"github.com/teletable/backend/internal/log"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned when a registration reuses an email address.
var ErrEmailTaken = errors.New("user with this email already exists")

// User is a stored account. PasswordHash never leaves this package's
// callers unredacted; handlers must convert to Public before responding.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public is the wire-safe projection of a User.
type Public struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// Public returns the redacted projection.
func (u User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Store provides user persistence over a pgx pool.
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
		logger:   log.WithComponent("users"),
	}
}

func cacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

const userColumns = "id, name, email, password_hash, role, created_at"

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// mapInsertError turns a unique-violation on the email column into
// ErrEmailTaken. The pre-insert existence check races under concurrent
// registrations; the constraint is the authority.
func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

// GetByEmail looks a user up by email. Not cached: it is only used on the
// login path where the password hash must be fresh.
func (s *Store) GetByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user by email: %w", err)
	}
	return u, nil
}

// GetByID looks a user up by id, consulting the KV cache first.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	if raw, ok := s.kv.Get(ctx, cacheKey(id)); ok {
		var u User
		if err := json.Unmarshal(raw, &u); err == nil {
			return u, nil
		}
	}

	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user by id: %w", err)
	}

	if raw, err := json.Marshal(u); err == nil {
		s.kv.Set(ctx, cacheKey(id), raw, s.cacheTTL)
	}
	return u, nil
}

// Create inserts a new account. The caller supplies the bcrypt hash.
func (s *Store) Create(ctx context.Context, name, email, passwordHash string, role auth.Role) (User, error) {
	existing, err := s.GetByEmail(ctx, email)
	if err == nil && existing.ID != uuid.Nil {
		return User{}, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	row := s.pool.QueryRow(ctx,
		"INSERT INTO users (id, name, email, password_hash, role) VALUES ($1, $2, $3, $4, $5) RETURNING "+userColumns,
		uuid.New(), name, email, passwordHash, role)
	u, err := scanUser(row)
	if err != nil {
		return User{}, mapInsertError(err)
	}

	s.logger.Info().
		Str(log.FieldEvent, "users.registered").
		Str(log.FieldUserID, u.ID.String()).
		Str(log.FieldUserName, u.Name).
		Str(log.FieldRole, string(u.Role)).
		Msg("new user registered")
	return u, nil
}

// UpdateRole changes a user's role and invalidates the cache entry.
func (s *Store) UpdateRole(ctx context.Context, id uuid.UUID, role auth.Role) (User, error) {
	row := s.pool.QueryRow(ctx,
		"UPDATE users SET role = $2 WHERE id = $1 RETURNING "+userColumns, id, role)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("update user role: %w", err)
	}
	s.kv.Delete(ctx, cacheKey(id))
	return u, nil
}

// Delete removes an account and invalidates the cache entry.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.kv.Delete(ctx, cacheKey(id))
	return nil
}

// List returns all accounts, newest first.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
