package model

import "time"

// RunStatus tracks one incentive's matching run through its state machine.
type RunStatus string

const (
	RunStatusPending     RunStatus = "pending"
	RunStatusPrefiltered RunStatus = "prefiltered"
	RunStatusScoring     RunStatus = "scoring"
	RunStatusAggregated  RunStatus = "aggregated"

	// Terminal states.
	RunStatusPersisted      RunStatus = "persisted"
	RunStatusNoMatch        RunStatus = "no_match"
	RunStatusBudgetExceeded RunStatus = "budget_exceeded"
	RunStatusScoringFailed  RunStatus = "scoring_failed"
	RunStatusPersistFailed  RunStatus = "persist_failed"
)

// Terminal reports whether the status ends an incentive run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusPersisted, RunStatusNoMatch, RunStatusBudgetExceeded, RunStatusScoringFailed, RunStatusPersistFailed:
		return true
	}
	return false
}

// Retryable reports whether a later batch may re-run the incentive without
// operator intervention. Persisted and zero-match outcomes are final until
// forced; the failure terminals are retried with a fresh budget.
func (s RunStatus) Retryable() bool {
	return s == RunStatusBudgetExceeded || s == RunStatusScoringFailed || s == RunStatusPersistFailed
}

// RunReport summarizes one incentive's matching run for the batch driver.
type RunReport struct {
	IncentiveID int64         `json:"incentive_id"`
	Status      RunStatus     `json:"status"`
	Candidates  int           `json:"candidates"`
	Scored      int           `json:"scored"`
	Invalid     int           `json:"invalid"`
	Matches     int           `json:"matches"`
	SpendUSD    float64       `json:"spend_usd"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// BatchReport aggregates a whole batch run. Its counts and total spend are
// the reporting contract consumed by the progress UI and export tooling.
type BatchReport struct {
	RunID      string      `json:"run_id"`
	Total      int         `json:"total"`
	Persisted  int         `json:"persisted"`
	ZeroMatch  int         `json:"zero_match"`
	Failed     int         `json:"failed"`
	SpendUSD   float64     `json:"spend_usd"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Runs       []RunReport `json:"runs"`
}

// Add folds one incentive report into the batch totals.
func (b *BatchReport) Add(r RunReport) {
	b.Total++
	b.SpendUSD += r.SpendUSD
	switch r.Status {
	case RunStatusPersisted:
		b.Persisted++
	case RunStatusNoMatch:
		b.ZeroMatch++
	default:
		b.Failed++
	}
	b.Runs = append(b.Runs, r)
}
