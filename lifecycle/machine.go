package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

var (
	// ErrInvalidTransition matches every rejected transition, topology or guard.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrGuardFailed matches only transitions whose preconditions were not met.
	ErrGuardFailed = errors.New("transition preconditions not met")
)

type FailureKind string

const (
	KindTopology FailureKind = "topology"
	KindGuard    FailureKind = "guard"
)

// TransitionError explains why a transition was refused
type TransitionError struct {
	From   entity.JobStatus
	To     entity.JobStatus
	Kind   FailureKind
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s -> %s rejected (%s): %s", e.From, e.To, e.Kind, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	if target == ErrInvalidTransition {
		return true
	}
	return target == ErrGuardFailed && e.Kind == KindGuard
}

var transitions = map[entity.JobStatus][]entity.JobStatus{
	entity.JobStatusSearching:         {entity.JobStatusPendingAcceptance, entity.JobStatusCancelled},
	entity.JobStatusPendingAcceptance: {entity.JobStatusAccepted, entity.JobStatusSearching, entity.JobStatusCancelled},
	entity.JobStatusAccepted:          {entity.JobStatusEnRoute, entity.JobStatusCancelled},
	entity.JobStatusEnRoute:           {entity.JobStatusArrived, entity.JobStatusCancelled},
	entity.JobStatusArrived:           {entity.JobStatusInProgress, entity.JobStatusCancelled},
	entity.JobStatusInProgress:        {entity.JobStatusPaymentPending, entity.JobStatusCancelled, entity.JobStatusDisputed},
	entity.JobStatusPaymentPending:    {entity.JobStatusCompleted, entity.JobStatusCancelled, entity.JobStatusDisputed},
	entity.JobStatusDisputed:          {entity.JobStatusCompleted, entity.JobStatusCancelled},
}

// CanTransition reports graph membership only; guards are not evaluated.
func CanTransition(from, to entity.JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func AllowedTransitions(from entity.JobStatus) []entity.JobStatus {
	return append([]entity.JobStatus(nil), transitions[from]...)
}

// Facts are the precondition inputs gathered by the caller before validating
type Facts struct {
	Actor                entity.ActorRole
	BeforeEvidence       int
	AfterEvidence        int
	SecurityCodeVerified bool
}

// Validate checks topology first, then the guard predicates of the target edge.
func Validate(from, to entity.JobStatus, facts Facts) error {
	if !to.Valid() {
		return &TransitionError{From: from, To: to, Kind: KindTopology, Reason: fmt.Sprintf("unknown status %q", to)}
	}
	if from.IsTerminal() {
		return &TransitionError{From: from, To: to, Kind: KindTopology, Reason: fmt.Sprintf("job is already %s", from)}
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to, Kind: KindTopology, Reason: fmt.Sprintf("%s cannot move to %s", from, to)}
	}

	for _, g := range guards {
		if !g.applies(from, to) {
			continue
		}
		if reason := g.check(facts); reason != "" {
			return &TransitionError{From: from, To: to, Kind: KindGuard, Reason: reason}
		}
	}
	return nil
}

// Stamp carries the context of a transition that Apply records on the job
type Stamp struct {
	At     time.Time
	Actor  entity.ActorRole
	Reason string
}

// Apply moves the job to the target status and stamps its milestone.
// It assumes Validate already accepted the edge.
func Apply(job *entity.Job, to entity.JobStatus, stamp Stamp) {
	at := stamp.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	from := job.Status
	job.Status = to
	job.UpdatedAt = at

	switch to {
	case entity.JobStatusSearching:
		// re-pool: clear the assignment so the next cycle stamps AssignedAt once again
		if from == entity.JobStatusPendingAcceptance {
			job.ProviderID = nil
			job.PriceEstimate = nil
			job.AssignedAt = nil
			job.Provider = nil
		}
	case entity.JobStatusPendingAcceptance:
		job.AssignedAt = &at
	case entity.JobStatusAccepted:
		job.AcceptedAt = &at
	case entity.JobStatusEnRoute:
		job.DepartedAt = &at
	case entity.JobStatusArrived:
		job.ArrivedAt = &at
	case entity.JobStatusInProgress:
		job.StartedAt = &at
	case entity.JobStatusPaymentPending:
		job.WorkCompletedAt = &at
	case entity.JobStatusCompleted:
		job.CompletedAt = &at
	case entity.JobStatusCancelled:
		job.CancelledAt = &at
		role := stamp.Actor
		job.CancelledBy = &role
		job.CancellationReason = stamp.Reason
	case entity.JobStatusDisputed:
		job.DisputedAt = &at
	}
}
