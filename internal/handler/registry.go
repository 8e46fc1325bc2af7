// Package handler defines the process-local binding between a job type
// and the function that executes it. Registration is explicit at
// process start (cmd/worker's main), yielding a frozen map — the
// replacement for the source system's decorator-based registration,
// which left handler availability dependent on import order (spec §9).
package handler

import (
	"context"
	"fmt"

	"github.com/arkady/edgarflow/internal/domain"
)

// Func executes one job, returning its result payload or an error.
// Handlers are idempotent by contract: the queue provides at-most-once
// execution, but a worker crash can cause a retry to re-invoke a
// handler whose previous attempt partially succeeded.
type Func func(ctx context.Context, params domain.RawParams) (domain.RawParams, error)

// Registry is an immutable-once-built map from job type to handler.
// Build it with NewRegistry and Register calls at startup, then treat
// it as read-only for the lifetime of the worker pool.
type Registry struct {
	handlers map[domain.JobType]Func
	built    bool
}

// NewRegistry returns an empty Registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.JobType]Func)}
}

// Register binds jobType to fn. Panics if called after Freeze, or if
// jobType is already registered — both are programming errors caught
// at startup, not runtime conditions to recover from.
func (r *Registry) Register(jobType domain.JobType, fn Func) {
	if r.built {
		panic(fmt.Sprintf("handler: Register(%s) called after Freeze", jobType))
	}
	if _, exists := r.handlers[jobType]; exists {
		panic(fmt.Sprintf("handler: duplicate registration for %s", jobType))
	}
	r.handlers[jobType] = fn
}

// Freeze marks the registry read-only. The worker command calls this
// once at startup, before handing the registry to the worker pool.
func (r *Registry) Freeze() {
	r.built = true
}

// Get looks up the handler for jobType. The bool is false if no
// handler is registered — the caller (worker pool) treats this as a
// configuration defect per spec §4.C step 4.
func (r *Registry) Get(jobType domain.JobType) (Func, bool) {
	fn, ok := r.handlers[jobType]
	return fn, ok
}

// Types lists every registered job type, for administrative inspection.
func (r *Registry) Types() []domain.JobType {
	types := make([]domain.JobType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
