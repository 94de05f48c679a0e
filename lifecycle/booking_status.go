package lifecycle

import (
	"fmt"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

// BookingStatus is the older unguarded booking vocabulary still sent by some clients
type BookingStatus string

const (
	BookingPending         BookingStatus = "pending"
	BookingConfirmed       BookingStatus = "confirmed"
	BookingOnTheWay        BookingStatus = "on_the_way"
	BookingArrived         BookingStatus = "arrived"
	BookingInProgress      BookingStatus = "in_progress"
	BookingAwaitingPayment BookingStatus = "awaiting_payment"
	BookingCompleted       BookingStatus = "completed"
	BookingCancelled       BookingStatus = "cancelled"
	BookingDisputed        BookingStatus = "disputed"
)

var fromBooking = map[BookingStatus]entity.JobStatus{
	BookingPending:         entity.JobStatusSearching,
	BookingConfirmed:       entity.JobStatusAccepted,
	BookingOnTheWay:        entity.JobStatusEnRoute,
	BookingArrived:         entity.JobStatusArrived,
	BookingInProgress:      entity.JobStatusInProgress,
	BookingAwaitingPayment: entity.JobStatusPaymentPending,
	BookingCompleted:       entity.JobStatusCompleted,
	BookingCancelled:       entity.JobStatusCancelled,
	BookingDisputed:        entity.JobStatusDisputed,
}

// pending_acceptance has no booking equivalent and collapses into pending.
var toBooking = map[entity.JobStatus]BookingStatus{
	entity.JobStatusSearching:         BookingPending,
	entity.JobStatusPendingAcceptance: BookingPending,
	entity.JobStatusAccepted:          BookingConfirmed,
	entity.JobStatusEnRoute:           BookingOnTheWay,
	entity.JobStatusArrived:           BookingArrived,
	entity.JobStatusInProgress:        BookingInProgress,
	entity.JobStatusPaymentPending:    BookingAwaitingPayment,
	entity.JobStatusCompleted:         BookingCompleted,
	entity.JobStatusCancelled:         BookingCancelled,
	entity.JobStatusDisputed:          BookingDisputed,
}

func FromBookingStatus(s BookingStatus) (entity.JobStatus, bool) {
	st, ok := fromBooking[s]
	return st, ok
}

func ToBookingStatus(s entity.JobStatus) (BookingStatus, bool) {
	b, ok := toBooking[s]
	return b, ok
}

// ParseStatus accepts a job status in either vocabulary.
func ParseStatus(raw string) (entity.JobStatus, error) {
	if s := entity.JobStatus(raw); s.Valid() {
		return s, nil
	}
	if s, ok := fromBooking[BookingStatus(raw)]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown job status %q", raw)
}
