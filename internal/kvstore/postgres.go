package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// postgresStore implements Store on the kv_entries table, one row per
// (profile, key).
type postgresStore struct {
	pool    *pgxpool.Pool
	profile string
	logger  zerolog.Logger
}

// NewPostgresStore creates a PostgreSQL-backed store scoped to profile.
// Run Migrate before first use.
func NewPostgresStore(pool *pgxpool.Pool, profile string, logger zerolog.Logger) Store {
	if profile == "" {
		profile = DefaultProfile
	}
	return &postgresStore{
		pool:    pool,
		profile: profile,
		logger:  logger.With().Str("component", "postgres-store").Str("profile", profile).Logger(),
	}
}

func (s *postgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}

	query := `
		SELECT value
		FROM kv_entries
		WHERE profile = $1 AND key = $2
	`

	var value string
	err := s.pool.QueryRow(ctx, query, s.profile, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to query entry")
		return "", false, fmt.Errorf("failed to query entry %s: %w", key, err)
	}

	return value, true, nil
}

func (s *postgresStore) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	query := `
		INSERT INTO kv_entries (profile, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, s.profile, key, value); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to upsert entry")
		return fmt.Errorf("failed to store entry %s: %w", key, err)
	}

	return nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	query := `
		DELETE FROM kv_entries
		WHERE profile = $1 AND key = $2
	`

	if _, err := s.pool.Exec(ctx, query, s.profile, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to delete entry")
		return fmt.Errorf("failed to delete entry %s: %w", key, err)
	}

	return nil
}
