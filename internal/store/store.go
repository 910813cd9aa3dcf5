// Package store persists incentives, companies and match results behind one
// interface with PostgreSQL and SQLite backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface consumed by the matching engine
// and its HTTP/CLI surfaces. The matching core only ever reads reference
// data and replaces whole per-incentive match sets.
type Store interface {
	// Reference data (read-only for the matching core).
	ListCompanies(ctx context.Context) ([]model.Company, error)
	ListIncentives(ctx context.Context) ([]model.Incentive, error)
	GetIncentive(ctx context.Context, id int64) (*model.Incentive, error)
	IncentivesMissingMatches(ctx context.Context) ([]model.Incentive, error)

	// Matches. ReplaceMatches swaps an incentive's whole ordered match set
	// in one transaction: on any failure the previous set stays intact, and
	// replaying the same set is idempotent. An empty slice records a
	// zero-match outcome by clearing prior rows.
	ReplaceMatches(ctx context.Context, incentiveID int64, matches []model.Match) error
	MatchesForIncentive(ctx context.Context, incentiveID int64) ([]model.Match, error)
	AllMatches(ctx context.Context) ([]model.Match, error)

	// Ingestion.
	UpsertCompanies(ctx context.Context, companies []model.Company) (int64, error)
	UpsertIncentives(ctx context.Context, incentives []model.Incentive) (int64, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
