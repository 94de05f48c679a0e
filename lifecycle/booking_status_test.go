package lifecycle

import (
	"testing"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

func TestBookingStatusTranslation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		booking BookingStatus
		job     entity.JobStatus
	}{
		{BookingPending, entity.JobStatusSearching},
		{BookingConfirmed, entity.JobStatusAccepted},
		{BookingOnTheWay, entity.JobStatusEnRoute},
		{BookingArrived, entity.JobStatusArrived},
		{BookingInProgress, entity.JobStatusInProgress},
		{BookingAwaitingPayment, entity.JobStatusPaymentPending},
		{BookingCompleted, entity.JobStatusCompleted},
		{BookingCancelled, entity.JobStatusCancelled},
		{BookingDisputed, entity.JobStatusDisputed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.booking), func(t *testing.T) {
			t.Parallel()
			got, ok := FromBookingStatus(tt.booking)
			if !ok || got != tt.job {
				t.Fatalf("FromBookingStatus(%s) = %s, %v; want %s", tt.booking, got, ok, tt.job)
			}
			back, ok := ToBookingStatus(got)
			if !ok || back != tt.booking {
				t.Fatalf("ToBookingStatus(%s) = %s, %v; want %s", got, back, ok, tt.booking)
			}
		})
	}
}

func TestEveryJobStatusHasBookingEquivalent(t *testing.T) {
	t.Parallel()

	for _, s := range entity.AllJobStatuses {
		b, ok := ToBookingStatus(s)
		if !ok {
			t.Errorf("%s has no booking status", s)
			continue
		}
		if _, ok := FromBookingStatus(b); !ok {
			t.Errorf("%s maps to %s which does not translate back", s, b)
		}
	}
	if b, _ := ToBookingStatus(entity.JobStatusPendingAcceptance); b != BookingPending {
		t.Errorf("pending_acceptance -> %s, want pending", b)
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    entity.JobStatus
		wantErr bool
	}{
		{"en_route", entity.JobStatusEnRoute, false},
		{"on_the_way", entity.JobStatusEnRoute, false},
		{"awaiting_payment", entity.JobStatusPaymentPending, false},
		{"pending_acceptance", entity.JobStatusPendingAcceptance, false},
		{"finished", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
