package models

import "time"

// TerminationReason states why a search session ended. Set exactly once.
type TerminationReason string

const (
	// The four non-fatal reasons.
	TerminationMaxVisits TerminationReason = "max_visits"
	TerminationSatisfied TerminationReason = "satisfaction_threshold"
	TerminationBudget    TerminationReason = "budget_exhausted"
	TerminationFrontier  TerminationReason = "frontier_exhausted"

	// TerminationFailureRate is the deliberate early cutoff when too
	// many visits keep failing. Non-fatal, exit code 0.
	TerminationFailureRate TerminationReason = "failure_rate"

	// TerminationCancelled marks an operator interrupt. The session's
	// results up to that point stand. Non-fatal.
	TerminationCancelled TerminationReason = "cancelled"

	// TerminationFatal covers unrecoverable aborts. Non-zero exit code.
	TerminationFatal TerminationReason = "fatal"
)

// Fatal reports whether the reason maps to a non-zero exit code.
func (r TerminationReason) Fatal() bool {
	return r == TerminationFatal
}

// SearchSession is the Coordinator-owned summary of one bounded search
// run. Memory persistence outlives it.
type SearchSession struct {
	ID string `json:"id"`

	Visited      int `json:"visited"`
	FailedVisits int `json:"failed_visits"`

	// Relevant counts candidates with VerdictRelevant.
	Relevant int `json:"relevant"`

	// Evaluated counts all candidates that reached a scored verdict;
	// Unevaluated counts exhausted-retry skips.
	Evaluated   int `json:"evaluated"`
	Unevaluated int `json:"unevaluated"`

	// Cost is the cumulative inference spend, in the configured
	// currency unit.
	Cost float64 `json:"cost"`

	Reason TerminationReason `json:"reason,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	Candidates []JobCandidate `json:"candidates,omitempty"`
}
