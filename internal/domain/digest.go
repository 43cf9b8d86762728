package domain

import "time"

// DigestRun is the ledger record of one pipeline execution.
type DigestRun struct {
	ID                int64
	StartedAt         time.Time
	CompletedAt       *time.Time
	Success           bool
	ArticlesProcessed int
	SourcesFailed     int
	SummariesFailed   int
	OverallSummary    string
	ErrorMessage      string
	EmailSent         bool
}

// Finished reports whether the run reached a terminal state.
func (r DigestRun) Finished() bool {
	return r.CompletedAt != nil
}

// RunOutcome is the terminal state written when a run closes.
type RunOutcome struct {
	Success           bool
	ArticlesProcessed int
	SourcesFailed     int
	SummariesFailed   int
	OverallSummary    string
	ErrorMessage      string
	EmailSent         bool
	CompletedAt       time.Time
}

// FailedOutcome builds the outcome recorded for an aborted run.
func FailedOutcome(err error) RunOutcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return RunOutcome{Success: false, ErrorMessage: msg}
}
