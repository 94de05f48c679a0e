package dto

import (
	"time"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/lifecycle"
)

type StartSearchRequestDTO struct {
	Location      entity.Location          `json:"location" binding:"required"`
	Service       entity.ServiceDescriptor `json:"service" binding:"required"`
	ScheduledFor  *time.Time               `json:"scheduled_for"`
	Currency      string                   `json:"currency" binding:"omitempty,len=3"`
	MaxDistanceKm float64                  `json:"max_distance_km" binding:"gte=0,lte=100"`
}

type AdvanceStatusRequestDTO struct {
	// Status accepts either the job or the booking vocabulary
	Status   string         `json:"status" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

type CancelRequestDTO struct {
	Reason string `json:"reason" binding:"max=500"`
}

type SecurityCodeRequestDTO struct {
	Code string `json:"code" binding:"required,len=4,numeric"`
}

type LocationRequestDTO struct {
	Latitude  *float64   `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64   `json:"longitude" binding:"required,gte=-180,lte=180"`
	Accuracy  float64    `json:"accuracy" binding:"gte=0"`
	Heading   *float64   `json:"heading"`
	Speed     *float64   `json:"speed"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r LocationRequestDTO) Position() entity.Position {
	pos := entity.Position{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Accuracy:  r.Accuracy,
		Heading:   r.Heading,
		Speed:     r.Speed,
	}
	if r.Timestamp != nil {
		pos.Timestamp = r.Timestamp.UTC()
	}
	return pos
}

type PositionErrorRequestDTO struct {
	Code    string `json:"code" binding:"required,oneof=permission_denied position_unavailable timeout"`
	Message string `json:"message" binding:"max=500"`
}

type AcceptOfferRequestDTO struct {
	PriceEstimate float64 `json:"price_estimate" binding:"gte=0"`
}

type UpdatePriceRequestDTO struct {
	FinalPrice float64 `json:"final_price" binding:"gte=0"`
}

type AssignProviderRequestDTO struct {
	ProviderID    string  `json:"provider_id" binding:"required,uuid"`
	PriceEstimate float64 `json:"price_estimate" binding:"gte=0"`
}

type AdminStatusRequestDTO struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

type PaymentEventRequestDTO struct {
	Outcome   string  `json:"outcome" binding:"required,oneof=initiated completed failed"`
	Reference string  `json:"reference" binding:"required,max=128"`
	Amount    float64 `json:"amount" binding:"gte=0"`
	Currency  string  `json:"currency" binding:"omitempty,len=3"`
}

// JobResponseDTO adds the booking vocabulary status for older clients
type JobResponseDTO struct {
	*entity.Job
	BookingStatus lifecycle.BookingStatus `json:"booking_status,omitempty"`
}

func NewJobResponse(job *entity.Job) *JobResponseDTO {
	if job == nil {
		return nil
	}
	booking, _ := lifecycle.ToBookingStatus(job.Status)
	return &JobResponseDTO{Job: job, BookingStatus: booking}
}
