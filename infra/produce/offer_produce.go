package produce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

const (
	OfferExchange       = "offer.exchange"
	OfferCreatedQueue   = "offer.created"
	OfferCreatedPattern = "offer.created.#"
)

func OfferCreatedRoutingKey(providerID string) string {
	return "offer.created." + providerID
}

// OfferMessage is pushed to the provider's device through the push gateway
type OfferMessage struct {
	NotificationID string         `json:"notification_id"`
	JobID          string         `json:"job_id"`
	ProviderID     string         `json:"provider_id"`
	Category       string         `json:"category"`
	Urgency        entity.Urgency `json:"urgency"`
	Address        string         `json:"address"`
	DistanceKm     float64        `json:"distance_km"`
	EtaMinutes     int            `json:"eta_minutes"`
	ExpiresAt      int64          `json:"expires_at"`
	Timestamp      int64          `json:"timestamp"`
}

type OfferService struct {
	channel publisher
}

func InitOfferService(channel *amqp.Channel) *OfferService {
	service := &OfferService{
		channel: channel,
	}

	// Declare exchange
	err := channel.ExchangeDeclare(
		OfferExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Offer exchange: " + err.Error())
	}

	// Declare offer queue for the push gateway
	_, err = channel.QueueDeclare(
		OfferCreatedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Offer queue: " + err.Error())
	}

	err = channel.QueueBind(
		OfferCreatedQueue,
		OfferCreatedPattern,
		OfferExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Offer queue: " + err.Error())
	}

	return service
}

func (s *OfferService) PublishOffer(ctx context.Context, n entity.Notification, service entity.ServiceDescriptor, location entity.Location) error {
	ttl := time.Until(n.ExpiresAt).Milliseconds()
	if ttl <= 0 {
		return nil
	}

	message := OfferMessage{
		NotificationID: n.ID.String(),
		JobID:          n.JobID.String(),
		ProviderID:     n.ProviderID.String(),
		Category:       service.Category,
		Urgency:        service.Urgency,
		Address:        location.Address,
		DistanceKm:     n.DistanceKm,
		EtaMinutes:     n.EtaMinutes,
		ExpiresAt:      n.ExpiresAt.Unix(),
		Timestamp:      time.Now().Unix(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal offer message: %w", err)
	}

	return s.channel.PublishWithContext(
		ctx,
		OfferExchange,
		OfferCreatedRoutingKey(message.ProviderID),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Expiration:   fmt.Sprintf("%d", ttl),
		},
	)
}
