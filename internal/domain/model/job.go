package model

import (
	"errors"
	"fmt"
	"strings"
)

// JobStatus is the client's view of a server-side report job. It is only ever derived
// from a poll response, never advanced locally.
type JobStatus string

const (
	// JobStatusPending means the last poll carried no result file URL.
	JobStatusPending JobStatus = "pending"
	// JobStatusComplete means a result file URL has been observed.
	JobStatusComplete JobStatus = "complete"
)

// Valid returns true if the JobStatus is known.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusComplete
}

// Job is a report job started by this run.
type Job struct {
	ID               string
	ReportTemplateID string
	Status           JobStatus
	ResultURL        string
}

// NewJob returns a pending job.
func NewJob(id, templateID string) *Job {
	return &Job{ID: id, ReportTemplateID: templateID, Status: JobStatusPending}
}

// Observe applies a poll response. A non-empty result URL completes the job; an empty
// one leaves it pending. A completed job is terminal and ignores later observations.
func (j *Job) Observe(resultURL string) {
	if j.Status == JobStatusComplete {
		return
	}
	if resultURL = strings.TrimSpace(resultURL); resultURL != "" {
		j.ResultURL = resultURL
		j.Status = JobStatusComplete
	}
}

// Ready reports whether the job has a result URL.
func (j *Job) Ready() bool {
	return j.Status == JobStatusComplete && j.ResultURL != ""
}

// PollAttempt is the loop state of the poller: the 1-based number of the request
// about to be made and how many retries remain after it.
type PollAttempt struct {
	Number    int
	Remaining int
}

// FirstPollAttempt returns the state before the first status request.
func FirstPollAttempt(maxAttempts int) (PollAttempt, error) {
	if maxAttempts < 0 {
		return PollAttempt{}, fmt.Errorf("max attempts must be >= 0, got %d", maxAttempts)
	}
	return PollAttempt{Number: 1, Remaining: maxAttempts}, nil
}

// ErrBudgetExhausted is returned by Next when no retries remain.
var ErrBudgetExhausted = errors.New("poll budget exhausted")

// Next consumes one retry. The budget only ever decreases.
func (a PollAttempt) Next() (PollAttempt, error) {
	if a.Remaining <= 0 {
		return a, ErrBudgetExhausted
	}
	return PollAttempt{Number: a.Number + 1, Remaining: a.Remaining - 1}, nil
}
