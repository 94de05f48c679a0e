package produce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/utils"
)

const (
	PaymentExchange   = "payment.exchange"
	PaymentQueue      = "payment.events"
	PaymentRoutingKey = "payment.event"

	// PaymentTimestampTolerance bounds the age of a signed payment message in seconds
	PaymentTimestampTolerance = 300
)

var ErrInvalidPaymentSignature = errors.New("invalid payment signature")

type PaymentOutcome string

const (
	PaymentInitiated PaymentOutcome = "initiated"
	PaymentCompleted PaymentOutcome = "completed"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentEvent is the opaque "mark job paid" signal from the payment provider
type PaymentEvent struct {
	JobID     string         `json:"job_id"`
	Outcome   PaymentOutcome `json:"outcome"`
	Reference string         `json:"reference"`
	Amount    float64        `json:"amount"`
	Currency  string         `json:"currency"`
}

// SignedPaymentMessage carries the event and an HMAC over its canonical form.
// Format of the signed string: PAYMENT\npayment.events/<job_id>\nTIMESTAMP\nSHA256(event)
type SignedPaymentMessage struct {
	Event     json.RawMessage `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Signature string          `json:"signature"`
}

type PaymentService struct {
	channel publisher
	secret  string
}

func InitPaymentService(channel *amqp.Channel, secret string) *PaymentService {
	service := &PaymentService{
		channel: channel,
		secret:  secret,
	}

	err := channel.ExchangeDeclare(
		PaymentExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Payment exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		PaymentQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Payment queue: " + err.Error())
	}

	err = channel.QueueBind(
		PaymentQueue,
		PaymentRoutingKey,
		PaymentExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Payment queue: " + err.Error())
	}

	return service
}

// PublishPaymentEvent signs and enqueues a payment signal, used for offline
// settlements recorded by an admin.
func (s *PaymentService) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	msg, err := SignPaymentEvent(s.secret, event, time.Now().Unix())
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal payment message: %w", err)
	}

	return s.channel.PublishWithContext(
		ctx,
		PaymentExchange,
		PaymentRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func SignPaymentEvent(secret string, event PaymentEvent, timestamp int64) (*SignedPaymentMessage, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment event: %w", err)
	}
	return &SignedPaymentMessage{
		Event:     raw,
		Timestamp: timestamp,
		Signature: utils.ComputeHMACSHA256(secret, paymentStringToSign(event.JobID, timestamp, raw)),
	}, nil
}

// VerifyPaymentMessage checks signature and freshness, then decodes the event.
func VerifyPaymentMessage(secret string, body []byte, now time.Time) (*PaymentEvent, error) {
	var msg SignedPaymentMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment message: %w", err)
	}

	var event PaymentEvent
	if err := json.Unmarshal(msg.Event, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment event: %w", err)
	}

	if utils.Abs(now.Unix()-msg.Timestamp) > PaymentTimestampTolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidPaymentSignature)
	}

	expected := utils.ComputeHMACSHA256(secret, paymentStringToSign(event.JobID, msg.Timestamp, msg.Event))
	if !utils.SecureCompare(expected, msg.Signature) {
		return nil, ErrInvalidPaymentSignature
	}
	return &event, nil
}

func paymentStringToSign(jobID string, timestamp int64, raw []byte) string {
	return utils.BuildStringToSign("PAYMENT", PaymentQueue+"/"+jobID, timestamp, utils.HashBodySHA256(raw))
}
