// Package domain holds the entities the core coordination layer operates
// on: jobs, pipeline runs, and the job-type registry they dispatch through.
package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// JobStatus is one of the five states in a job's lifecycle.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// JobType selects the handler a job dispatches to. The set is closed;
// see the handler package for the registered implementations.
type JobType string

const (
	JobTypeCompanyIngestion     JobType = "company_ingestion"
	JobTypeFilingIngestion      JobType = "filing_ingestion"
	JobTypeContentGeneration    JobType = "content_generation"
	JobTypeIngestPipeline       JobType = "ingest_pipeline"
	JobTypeFullPipeline         JobType = "full_pipeline"
	JobTypeBulkIngest           JobType = "bulk_ingest"
	JobTypeCompanyGroupPipeline JobType = "company_group_pipeline"
	JobTypeTest                 JobType = "test"
)

// DefaultPriority is used when a job spec does not set one. Lower values
// are more urgent; 0 is critical, 4 is backlog.
const DefaultPriority = 2

// DefaultMaxRetries is used when a job spec does not set one.
const DefaultMaxRetries = 3

// RawParams is the opaque, queue-transported payload for a job's params
// or result. The queue never branches on its contents; only the handler
// named by JobType knows how to decode it. Handlers marshal their own
// typed params struct (see the params.go variants) into this on creation
// and unmarshal it back out on execution.
type RawParams json.RawMessage

// MarshalJSON satisfies json.Marshaler by passing the raw bytes through.
func (r RawParams) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON satisfies json.Unmarshaler by copying the raw bytes.
func (r *RawParams) UnmarshalJSON(data []byte) error {
	*r = append((*r)[0:0], data...)
	return nil
}

// EncodeParams marshals a typed params/result value into RawParams.
func EncodeParams(v any) (RawParams, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return RawParams(b), nil
}

// Decode unmarshals the raw payload into v.
func (r RawParams) Decode(v any) error {
	if len(r) == 0 {
		return nil
	}
	return json.Unmarshal(r, v)
}

// Job is a unit of deferred work.
type Job struct {
	ID          string
	Type        JobType
	Params      RawParams
	Priority    int
	Status      JobStatus
	WorkerID    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	Result      RawParams
	Error       *string
}

// Duration returns the wall-clock time from StartedAt to CompletedAt. It
// returns zero if the job never started or has not yet reached a
// terminal state.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// JobSpec is the input to creating a new job. A nil Priority falls back
// to DefaultPriority — Priority is a *int, not int, because 0 is
// "critical" (spec §3's most urgent level), not "unset"; a zero-value
// int field would make critical jobs impossible to enqueue through the
// public Store.InsertJob operation. Zero MaxRetries falls back to
// DefaultMaxRetries; 0 is not a meaningful retry budget, so no such
// ambiguity exists there.
type JobSpec struct {
	Type       JobType
	Params     RawParams
	Priority   *int
	MaxRetries int
}

// NewJobID generates a time-ordered job identifier. UUIDv7 embeds a
// millisecond timestamp in its most significant bits, so lexicographic
// string order matches insertion order within the same millisecond.
func NewJobID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// StaleErrorMessage formats the distinguished error recorded when a
// sweep recovers a stale lease.
func StaleErrorMessage(thresholdSeconds int) string {
	return "Stale: no update for " + strconv.Itoa(thresholdSeconds) + "s"
}

// ErrShutdownDuringExecution is the error string recorded when a job is
// interrupted by cooperative worker shutdown.
const ErrShutdownDuringExecution = "worker shutdown during execution"
