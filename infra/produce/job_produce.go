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
	JobExchange = "job.exchange"
	// JobUpdatedPattern binds a queue to every job change
	JobUpdatedPattern = "job.updated.#"
)

func JobUpdatedRoutingKey(jobID string) string {
	return "job.updated." + jobID
}

// JobService publishes the job change feed
type JobService struct {
	channel publisher
}

func InitJobService(channel *amqp.Channel) *JobService {
	service := &JobService{
		channel: channel,
	}

	// Declare exchange
	err := channel.ExchangeDeclare(
		JobExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Job exchange: " + err.Error())
	}

	return service
}

// PublishJobChange announces that a job row changed. Receivers re-fetch the
// row, so the message is transient.
func (s *JobService) PublishJobChange(ctx context.Context, change entity.JobChange) error {
	if change.Timestamp == 0 {
		change.Timestamp = time.Now().Unix()
	}

	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal job change: %w", err)
	}

	return s.channel.PublishWithContext(
		ctx,
		JobExchange,
		JobUpdatedRoutingKey(change.JobID.String()),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now(),
		},
	)
}
