// Package monitoring summarizes matching coverage for the operational stats
// endpoint.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/store"
)

// MetricsSnapshot holds a point-in-time view of matching coverage.
type MetricsSnapshot struct {
	Incentives         int       `json:"incentives"`
	Companies          int       `json:"companies"`
	IncentivesMatched  int       `json:"incentives_matched"`
	IncentivesUnmapped int       `json:"incentives_unmapped"`
	TotalMatches       int       `json:"total_matches"`
	AvgScore           float64   `json:"avg_score"`
	CollectedAt        time.Time `json:"collected_at"`
}

// Collector builds snapshots from the store.
type Collector struct {
	store store.Store
}

func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Snapshot counts incentives, companies, and persisted matches. An incentive
// counts as matched when at least one match row exists for it.
func (c *Collector) Snapshot(ctx context.Context) (*MetricsSnapshot, error) {
	incentives, err := c.store.ListIncentives(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list incentives")
	}
	companies, err := c.store.ListCompanies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list companies")
	}
	matches, err := c.store.AllMatches(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list matches")
	}

	matched := make(map[int64]bool)
	var scoreSum float64
	for _, m := range matches {
		matched[m.IncentiveID] = true
		scoreSum += m.Score
	}

	snap := &MetricsSnapshot{
		Incentives:         len(incentives),
		Companies:          len(companies),
		IncentivesMatched:  len(matched),
		IncentivesUnmapped: len(incentives) - len(matched),
		TotalMatches:       len(matches),
		CollectedAt:        time.Now().UTC(),
	}
	if len(matches) > 0 {
		snap.AvgScore = scoreSum / float64(len(matches))
	}
	return snap, nil
}
