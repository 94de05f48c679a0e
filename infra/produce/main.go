package produce

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Produce struct {
	JobService     *JobService
	OfferService   *OfferService
	PaymentService *PaymentService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel, paymentSecret string) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	jobService := InitJobService(channel)
	if jobService == nil {
		panic("Failed to initialize Job service")
	}

	offerService := InitOfferService(channel)
	if offerService == nil {
		panic("Failed to initialize Offer service")
	}

	paymentService := InitPaymentService(channel, paymentSecret)
	if paymentService == nil {
		panic("Failed to initialize Payment service")
	}

	produceInstance = &Produce{
		JobService:     jobService,
		OfferService:   offerService,
		PaymentService: paymentService,
	}

	return produceInstance
}

// publisher is the slice of *amqp.Channel the services use
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}
