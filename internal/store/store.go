// Package store provides the Postgres + pgvector persistence adapter for
// articles, user vectors, interactions, profiles and health snapshots.
// It is the only layer that knows pgvector's wire format; everything above
// it sees plain []float64.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// Store wraps the database connection and exposes per-table repositories.
type Store struct {
	db           *sql.DB
	articles     *ArticleRepo
	userVectors  *UserVectorRepo
	interactions *InteractionRepo
	profiles     *ProfileRepo
	health       *HealthRepo
}

// New opens a Postgres connection and verifies it.
func New(databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		db:           db,
		articles:     &ArticleRepo{db: db},
		userVectors:  &UserVectorRepo{db: db},
		interactions: &InteractionRepo{db: db},
		profiles:     &ProfileRepo{db: db},
		health:       &HealthRepo{db: db},
	}, nil
}

func (s *Store) Articles() *ArticleRepo         { return s.articles }
func (s *Store) UserVectors() *UserVectorRepo   { return s.userVectors }
func (s *Store) Interactions() *InteractionRepo { return s.interactions }
func (s *Store) Profiles() *ProfileRepo         { return s.profiles }
func (s *Store) Health() *HealthRepo            { return s.health }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
