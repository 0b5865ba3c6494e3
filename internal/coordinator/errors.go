package coordinator

import (
	"errors"
)

// Error taxonomy surfaced to callers. Validation errors are returned
// synchronously and never retried; operational failures are handled through
// the internal requeue path and only surface after attempts are exhausted.
var (
	// ErrInvalidDescriptor bad registration input (negative limits, empty
	// capability set).
	ErrInvalidDescriptor = errors.New("invalid agent descriptor")

	// ErrUnknownAgent lookup failure for an agent id.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrUnknownTask lookup failure for a task id.
	ErrUnknownTask = errors.New("unknown task")

	// ErrHasActiveTasks deregistration refused until active tasks are
	// reassigned.
	ErrHasActiveTasks = errors.New("agent has active tasks")

	// ErrInvalidTask bad submission input (negative resource request,
	// duplicate id).
	ErrInvalidTask = errors.New("invalid task")

	// ErrOutcomeMismatch outcome reported by an agent that does not hold the
	// task.
	ErrOutcomeMismatch = errors.New("outcome reported by non-holding agent")
)

// NoEligibleAgentDiagnostic is attached to queued tasks no currently known
// agent can satisfy. It is a soft signal, not an error: the task stays queued
// and eligibility may appear later.
const NoEligibleAgentDiagnostic = "no eligible agent for required capabilities"
