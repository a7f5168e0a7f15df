// Package store keeps an optional audit log of assessment outcomes in
// PostgreSQL. Survey answers and feature vectors are never written.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/diabetes-risk/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore records outcomes and answers readiness pings.
type PostgresStore struct {
	db DB
}

// New wraps an existing connection pool.
func New(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return New(pool), nil
}

// InitSchema creates the assessments table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

const insertAssessmentSQL = `
	INSERT INTO assessments (id, probability, tier, model, advice_ok, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Record implements pipeline.Recorder.
func (s *PostgresStore) Record(ctx context.Context, o pipeline.Outcome) error {
	_, err := s.db.Exec(ctx, insertAssessmentSQL,
		o.ID,
		o.Probability,
		o.Tier.String(),
		o.Model,
		o.AdviceOK,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
