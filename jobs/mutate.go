package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/lifecycle"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// errUnchanged lets an apply step end a mutation without writing.
var errUnchanged = errors.New("job unchanged")

// writeAttempts bounds the re-validate loop when concurrent writers keep
// moving the row.
const writeAttempts = 3

// mutation describes one write. An empty target status keeps the job where it is.
type mutation struct {
	to       entity.JobStatus
	action   entity.JobLogAction
	actor    Actor
	metadata map[string]any
	reason   string
	apply    func(*entity.Job) error
}

func (r *Repository) mutate(ctx context.Context, id uuid.UUID, m mutation) (*entity.Job, error) {
	ctx, span := r.tracer.Start(ctx, "jobs."+string(m.action))
	defer span.End()

	current, err := r.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		next, entry, err := r.prepare(ctx, current, m)
		if errors.Is(err, errUnchanged) {
			return current, nil
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		saved, err := r.store.UpdateJob(ctx, next, current.Status, entry)
		if err == nil {
			r.afterMutation(ctx, current, saved, m)
			return r.commit(ctx, saved, m.action), nil
		}
		if errors.Is(err, store.ErrNotFound) {
			r.invalidate(id)
			return nil, ErrNotFound
		}
		if !errors.Is(err, store.ErrConflict) || attempt+1 >= writeAttempts {
			r.invalidate(id)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to update job %s: %w", id, err)
		}

		// another writer moved the row; validate again against the stored copy
		current, err = r.Get(ctx, id, true)
		if err != nil {
			return nil, err
		}
	}
}

func (r *Repository) prepare(ctx context.Context, current *entity.Job, m mutation) (*entity.Job, *entity.JobLog, error) {
	if m.to == "" && current.IsTerminal() {
		return nil, nil, ErrJobClosed
	}

	next := current.Clone()
	if m.apply != nil {
		if err := m.apply(next); err != nil {
			return nil, nil, err
		}
	}

	if m.to == "" {
		next.UpdatedAt = r.now()
		return next, r.newLog(current.ID, m.action, m.actor, nil, nil, m.metadata), nil
	}

	facts, err := r.facts(ctx, next, m.to, m.actor)
	if err != nil {
		return nil, nil, err
	}
	if err := lifecycle.Validate(current.Status, m.to, facts); err != nil {
		return nil, nil, err
	}
	lifecycle.Apply(next, m.to, lifecycle.Stamp{At: r.now(), Actor: m.actor.Role, Reason: m.reason})

	from, to := current.Status, m.to
	return next, r.newLog(current.ID, m.action, m.actor, &from, &to, m.metadata), nil
}

// facts loads only what the guard of the target status needs.
func (r *Repository) facts(ctx context.Context, job *entity.Job, to entity.JobStatus, actor Actor) (lifecycle.Facts, error) {
	f := lifecycle.Facts{
		Actor:                actor.Role,
		SecurityCodeVerified: job.SecurityCodeVerifiedAt != nil,
	}
	switch to {
	case entity.JobStatusInProgress:
		n, err := r.store.CountEvidence(ctx, job.ID, entity.EvidenceBefore)
		if err != nil {
			return f, fmt.Errorf("failed to count evidence for job %s: %w", job.ID, err)
		}
		f.BeforeEvidence = int(n)
	case entity.JobStatusPaymentPending:
		n, err := r.store.CountEvidence(ctx, job.ID, entity.EvidenceAfter)
		if err != nil {
			return f, fmt.Errorf("failed to count evidence for job %s: %w", job.ID, err)
		}
		f.AfterEvidence = int(n)
	}
	return f, nil
}

func (r *Repository) afterMutation(ctx context.Context, before, after *entity.Job, m mutation) {
	if m.to == "" {
		return
	}
	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(before.Status)),
		attribute.String("to", string(after.Status)),
	))
	r.logger.InfoWithContextf(ctx, "[Job Repository] Job %s moved %s -> %s by %s", after.ID, before.Status, after.Status, m.actor.Role)

	if before.Status == entity.JobStatusSearching && after.Status != entity.JobStatusSearching {
		if n, err := r.store.ExpirePendingNotifications(ctx, after.ID); err != nil {
			r.logger.WarningWithContextf(ctx, "[Job Repository] Failed to expire pending offers for job %s: %v", after.ID, err)
		} else if n > 0 {
			r.logger.DebugWithContextf(ctx, "[Job Repository] Expired %d pending offers for job %s", n, after.ID)
		}
	}
}

func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, actor Actor, reason string) (*entity.Job, error) {
	return r.UpdateStatus(ctx, id, entity.JobStatusCancelled, actor, map[string]any{"reason": reason})
}

// VerifySecurityCode checks the code the provider reads from the client on
// arrival. A second successful verification is a no-op.
func (r *Repository) VerifySecurityCode(ctx context.Context, id uuid.UUID, code string, actor Actor) (*entity.Job, error) {
	return r.mutate(ctx, id, mutation{
		action: entity.ActionSecurityCodeVerified,
		actor:  actor,
		apply: func(j *entity.Job) error {
			if j.Status != entity.JobStatusArrived {
				return fmt.Errorf("%w: security code can only be verified on arrival", ErrValidation)
			}
			if !utils.SecureCompare(j.SecurityCode, code) {
				return ErrSecurityCodeMismatch
			}
			if j.SecurityCodeVerifiedAt != nil {
				return errUnchanged
			}
			at := r.now()
			j.SecurityCodeVerifiedAt = &at
			return nil
		},
	})
}

// UpdatePrice sets the final price once a provider is bound.
func (r *Repository) UpdatePrice(ctx context.Context, id uuid.UUID, finalPrice float64, actor Actor) (*entity.Job, error) {
	if finalPrice < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	meta := map[string]any{"final_price": finalPrice}
	return r.mutate(ctx, id, mutation{
		action:   entity.ActionPriceUpdated,
		actor:    actor,
		metadata: meta,
		apply: func(j *entity.Job) error {
			if j.ProviderID == nil {
				return fmt.Errorf("%w: no provider assigned", ErrValidation)
			}
			if j.FinalPrice != nil {
				meta["previous_price"] = *j.FinalPrice
			}
			price := finalPrice
			j.FinalPrice = &price
			return nil
		},
	})
}

type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentOutcome struct {
	Status    PaymentStatus
	Reference string
	Amount    float64
	Currency  string
}

// RecordPayment audits a payment event. A completed payment on a job that is
// waiting for it closes the job.
func (r *Repository) RecordPayment(ctx context.Context, id uuid.UUID, outcome PaymentOutcome) (*entity.Job, error) {
	var action entity.JobLogAction
	switch outcome.Status {
	case PaymentInitiated:
		action = entity.ActionPaymentInitiated
	case PaymentCompleted:
		action = entity.ActionPaymentCompleted
	case PaymentFailed:
		action = entity.ActionPaymentFailed
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, outcome.Status)
	}

	current, err := r.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{
		"reference": outcome.Reference,
		"amount":    outcome.Amount,
		"currency":  outcome.Currency,
	}
	if outcome.Status != PaymentCompleted || current.Status == entity.JobStatusCompleted {
		if err := r.store.AppendLog(ctx, r.newLog(id, action, SystemActor(), nil, nil, meta)); err != nil {
			return nil, fmt.Errorf("failed to record payment for job %s: %w", id, err)
		}
		return current, nil
	}

	return r.mutate(ctx, id, mutation{
		to:       entity.JobStatusCompleted,
		action:   action,
		actor:    SystemActor(),
		metadata: meta,
		apply: func(j *entity.Job) error {
			if j.FinalPrice == nil && outcome.Amount > 0 {
				amount := outcome.Amount
				j.FinalPrice = &amount
			}
			return nil
		},
	})
}

// AddEvidence records an uploaded capture against an active job.
func (r *Repository) AddEvidence(ctx context.Context, ev *entity.Evidence, actor Actor) error {
	if ev == nil || !ev.Kind.Valid() {
		return fmt.Errorf("%w: evidence kind must be before or after", ErrValidation)
	}
	if ev.ObjectKey == "" {
		return fmt.Errorf("%w: evidence object key is required", ErrValidation)
	}

	job, err := r.Get(ctx, ev.JobID, false)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return ErrJobClosed
	}

	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.CreatedAt = r.now()

	entry := r.newLog(ev.JobID, entity.ActionSystemEvent, actor, nil, nil, map[string]any{
		"event":      "evidence_added",
		"kind":       ev.Kind,
		"object_key": ev.ObjectKey,
	})
	if err := r.store.CreateEvidence(ctx, ev, entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to record evidence for job %s: %w", ev.JobID, err)
	}
	return nil
}

func (r *Repository) Logs(ctx context.Context, id uuid.UUID) ([]entity.JobLog, error) {
	logs, err := r.store.ListLogs(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to list logs for job %s: %w", id, err)
	}
	return logs, nil
}
