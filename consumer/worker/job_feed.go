package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra/produce"
)

// ChangeSink receives decoded job change events
type ChangeSink interface {
	Publish(change entity.JobChange) int
}

// JobFeedConsumer feeds the job change exchange into the process-local hub.
// Every process binds its own exclusive queue so each sees every change.
type JobFeedConsumer struct {
	channel *amqp.Channel
	sink    ChangeSink
	logger  *infra.LoggerClient
}

func NewJobFeedConsumer(channel *amqp.Channel, sink ChangeSink, logger *infra.LoggerClient) *JobFeedConsumer {
	return &JobFeedConsumer{
		channel: channel,
		sink:    sink,
		logger:  logger,
	}
}

func (c *JobFeedConsumer) Start(ctx context.Context) error {
	queue, err := c.channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare job feed queue: %w", err)
	}

	if err := c.channel.QueueBind(queue.Name, produce.JobUpdatedPattern, produce.JobExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind job feed queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",
		true, // auto ack, changes are only wake-up signals
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register job feed consumer: %w", err)
	}

	c.logger.InfoWithContextf(ctx, "[Job Feed Consumer] Listening for %s on queue %s", produce.JobUpdatedPattern, queue.Name)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.InfoWithContextf(ctx, "[Job Feed Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.WarningWithContextf(ctx, "[Job Feed Consumer] Channel closed")
					return
				}
				c.handle(ctx, msg.Body)
			}
		}
	}()

	return nil
}

func (c *JobFeedConsumer) handle(ctx context.Context, body []byte) {
	var change entity.JobChange
	if err := json.Unmarshal(body, &change); err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Job Feed Consumer] Failed to unmarshal job change")
		return
	}
	n := c.sink.Publish(change)
	c.logger.DebugWithContextf(ctx, "[Job Feed Consumer] Job %s is %s, %d local listeners", change.JobID, change.Status, n)
}
