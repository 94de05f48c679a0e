package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra/produce"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/jobs"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/lifecycle"
)

// PaymentRecorder applies a verified payment signal to a job
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, id uuid.UUID, outcome jobs.PaymentOutcome) (*entity.Job, error)
}

// PaymentConsumer turns signed "mark job paid" messages into job updates.
type PaymentConsumer struct {
	channel  *amqp.Channel
	recorder PaymentRecorder
	secret   string
	logger   *infra.LoggerClient
	now      func() time.Time
}

func NewPaymentConsumer(channel *amqp.Channel, recorder PaymentRecorder, secret string, logger *infra.LoggerClient) *PaymentConsumer {
	return &PaymentConsumer{
		channel:  channel,
		recorder: recorder,
		secret:   secret,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *PaymentConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.PaymentQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register payment consumer: %w", err)
	}

	c.logger.InfoWithContextf(ctx, "[Payment Consumer] Started listening for payment events on queue: %s", produce.PaymentQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.InfoWithContextf(ctx, "[Payment Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.WarningWithContextf(ctx, "[Payment Consumer] Channel closed")
					return
				}
				c.handle(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *PaymentConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	event, err := produce.VerifyPaymentMessage(c.secret, msg.Body, c.now())
	if err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Payment Consumer] Rejected payment message")
		_ = msg.Nack(false, false)
		return
	}

	jobID, err := uuid.Parse(event.JobID)
	if err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Payment Consumer] Invalid job ID %q", event.JobID)
		_ = msg.Nack(false, false)
		return
	}

	job, err := c.recorder.RecordPayment(ctx, jobID, jobs.PaymentOutcome{
		Status:    jobs.PaymentStatus(event.Outcome),
		Reference: event.Reference,
		Amount:    event.Amount,
		Currency:  event.Currency,
	})
	switch {
	case err == nil:
		c.logger.InfoWithContextf(ctx, "[Payment Consumer] Payment %s (%s) recorded, job %s is %s", event.Reference, event.Outcome, jobID, job.Status)
		_ = msg.Ack(false)
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, jobs.ErrValidation), errors.Is(err, lifecycle.ErrInvalidTransition):
		// retrying cannot change the outcome
		c.logger.WarningWithContextf(ctx, "[Payment Consumer] Dropping payment %s for job %s: %v", event.Reference, jobID, err)
		_ = msg.Nack(false, false)
	default:
		c.logger.ErrorWithContextf(ctx, err, "[Payment Consumer] Failed to record payment %s for job %s", event.Reference, jobID)
		_ = msg.Nack(false, true)
	}
}
