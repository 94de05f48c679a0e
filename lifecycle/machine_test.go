package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

// satisfied returns facts that pass every guard on the edge.
func satisfied(from entity.JobStatus) Facts {
	f := Facts{Actor: entity.ActorProvider, BeforeEvidence: 1, AfterEvidence: 1, SecurityCodeVerified: true}
	if from == entity.JobStatusDisputed {
		f.Actor = entity.ActorAdmin
	}
	return f
}

func TestValidateTopology(t *testing.T) {
	t.Parallel()

	for _, from := range entity.AllJobStatuses {
		for _, to := range entity.AllJobStatuses {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				t.Parallel()
				err := Validate(from, to, satisfied(from))
				if CanTransition(from, to) {
					if err != nil {
						t.Fatalf("expected valid, got %v", err)
					}
					return
				}
				var te *TransitionError
				if !errors.As(err, &te) {
					t.Fatalf("expected *TransitionError, got %v", err)
				}
				if te.Kind != KindTopology {
					t.Errorf("kind = %s, want topology", te.Kind)
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Error("topology failure must match ErrInvalidTransition")
				}
				if errors.Is(err, ErrGuardFailed) {
					t.Error("topology failure must not match ErrGuardFailed")
				}
			})
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	t.Parallel()

	for _, s := range []entity.JobStatus{entity.JobStatusCompleted, entity.JobStatusCancelled} {
		if got := AllowedTransitions(s); len(got) != 0 {
			t.Errorf("%s allows %v", s, got)
		}
	}
	for _, s := range entity.ActiveJobStatuses {
		if !CanTransition(s, entity.JobStatusCancelled) {
			t.Errorf("%s must be cancellable", s)
		}
	}
}

func TestValidateGuards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		from  entity.JobStatus
		to    entity.JobStatus
		facts Facts
		ok    bool
	}{
		{"start without before photo", entity.JobStatusArrived, entity.JobStatusInProgress, Facts{SecurityCodeVerified: true}, false},
		{"start without verified code", entity.JobStatusArrived, entity.JobStatusInProgress, Facts{BeforeEvidence: 2}, false},
		{"start with both", entity.JobStatusArrived, entity.JobStatusInProgress, Facts{BeforeEvidence: 1, SecurityCodeVerified: true}, true},
		{"finish without after photo", entity.JobStatusInProgress, entity.JobStatusPaymentPending, Facts{BeforeEvidence: 1}, false},
		{"finish with after photo", entity.JobStatusInProgress, entity.JobStatusPaymentPending, Facts{AfterEvidence: 1}, true},
		{"system cannot dispute", entity.JobStatusInProgress, entity.JobStatusDisputed, Facts{Actor: entity.ActorSystem}, false},
		{"client disputes", entity.JobStatusPaymentPending, entity.JobStatusDisputed, Facts{Actor: entity.ActorClient}, true},
		{"provider resolves dispute", entity.JobStatusDisputed, entity.JobStatusCompleted, Facts{Actor: entity.ActorProvider}, false},
		{"admin resolves dispute", entity.JobStatusDisputed, entity.JobStatusCancelled, Facts{Actor: entity.ActorAdmin}, true},
		{"cancel needs no evidence", entity.JobStatusArrived, entity.JobStatusCancelled, Facts{Actor: entity.ActorClient}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.from, tt.to, tt.facts)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrGuardFailed) || !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected guard failure, got %v", err)
			}
			var te *TransitionError
			if errors.As(err, &te) && te.Reason == "" {
				t.Error("guard failure without a reason")
			}
		})
	}
}

func TestApplyStampsExactlyOneMilestone(t *testing.T) {
	t.Parallel()

	for from, targets := range transitions {
		for _, to := range targets {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				t.Parallel()
				pid := uuid.New()
				price := 50.0
				job := &entity.Job{ID: uuid.New(), Status: from, CreatedAt: time.Unix(0, 0).UTC(), ProviderID: &pid, PriceEstimate: &price}
				before := job.Clone()
				at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

				Apply(job, to, Stamp{At: at, Actor: entity.ActorClient, Reason: "changed plans"})

				if job.Status != to {
					t.Fatalf("status = %s, want %s", job.Status, to)
				}
				stamped := 0
				for _, s := range entity.AllJobStatuses {
					if s == entity.JobStatusSearching {
						continue
					}
					if before.Milestone(s) == nil && job.Milestone(s) != nil {
						stamped++
					}
				}
				want := 1
				if to == entity.JobStatusSearching {
					want = 0
				}
				if stamped != want {
					t.Fatalf("stamped %d milestones, want %d", stamped, want)
				}
				if want == 1 && !job.Milestone(to).Equal(at) {
					t.Errorf("milestone for %s = %v, want %v", to, job.Milestone(to), at)
				}
			})
		}
	}
}

func TestApplyRepoolClearsAssignment(t *testing.T) {
	t.Parallel()

	pid := uuid.New()
	price := 70.0
	assigned := time.Now().UTC()
	job := &entity.Job{Status: entity.JobStatusPendingAcceptance, ProviderID: &pid, PriceEstimate: &price, AssignedAt: &assigned}

	Apply(job, entity.JobStatusSearching, Stamp{Actor: entity.ActorProvider})

	if job.ProviderID != nil || job.PriceEstimate != nil || job.AssignedAt != nil {
		t.Fatalf("re-pool kept assignment: %+v", job)
	}
}

func TestApplyCancellationRecordsActor(t *testing.T) {
	t.Parallel()

	job := &entity.Job{Status: entity.JobStatusEnRoute}
	Apply(job, entity.JobStatusCancelled, Stamp{Actor: entity.ActorProvider, Reason: "vehicle broke down"})

	if job.CancelledBy == nil || *job.CancelledBy != entity.ActorProvider {
		t.Fatalf("CancelledBy = %v", job.CancelledBy)
	}
	if job.CancellationReason != "vehicle broke down" {
		t.Errorf("reason = %q", job.CancellationReason)
	}
	if job.CancelledAt == nil {
		t.Error("CancelledAt not stamped")
	}
}
