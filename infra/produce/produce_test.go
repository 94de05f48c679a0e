package produce

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []published
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublishJobChangeRoutesByJobID(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	svc := &JobService{channel: ch}
	jobID := uuid.New()

	err := svc.PublishJobChange(context.Background(), entity.JobChange{JobID: jobID, Status: entity.JobStatusEnRoute, Action: entity.ActionStatusChanged})
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.sent) != 1 {
		t.Fatalf("sent %d messages", len(ch.sent))
	}
	got := ch.sent[0]
	if got.exchange != JobExchange || got.key != "job.updated."+jobID.String() {
		t.Errorf("routed to %s/%s", got.exchange, got.key)
	}
	var change entity.JobChange
	if err := json.Unmarshal(got.msg.Body, &change); err != nil {
		t.Fatal(err)
	}
	if change.JobID != jobID || change.Timestamp == 0 {
		t.Errorf("change = %+v", change)
	}
}

func TestPublishOfferSkipsExpired(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	svc := &OfferService{channel: ch}
	n := entity.Notification{ID: uuid.New(), JobID: uuid.New(), ProviderID: uuid.New(), ExpiresAt: time.Now().Add(-time.Second)}

	if err := svc.PublishOffer(context.Background(), n, entity.ServiceDescriptor{Category: "plumbing"}, entity.Location{}); err != nil {
		t.Fatal(err)
	}
	if len(ch.sent) != 0 {
		t.Fatalf("expired offer was published")
	}

	n.ExpiresAt = time.Now().Add(entity.OfferWindow)
	if err := svc.PublishOffer(context.Background(), n, entity.ServiceDescriptor{Category: "plumbing"}, entity.Location{}); err != nil {
		t.Fatal(err)
	}
	if len(ch.sent) != 1 || ch.sent[0].key != OfferCreatedRoutingKey(n.ProviderID.String()) {
		t.Fatalf("sent = %+v", ch.sent)
	}
	if ch.sent[0].msg.Expiration == "" {
		t.Error("offer message carries no expiration")
	}
}

func TestPaymentSignatureRoundTrip(t *testing.T) {
	t.Parallel()
	const secret = "s3cret"
	now := time.Now()
	event := PaymentEvent{JobID: uuid.NewString(), Outcome: PaymentCompleted, Reference: "pi_123", Amount: 95, Currency: "EUR"}

	msg, err := SignPaymentEvent(secret, event, now.Unix())
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(msg)

	got, err := VerifyPaymentMessage(secret, body, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *got != event {
		t.Errorf("event = %+v, want %+v", *got, event)
	}

	if _, err := VerifyPaymentMessage("other", body, now); !errors.Is(err, ErrInvalidPaymentSignature) {
		t.Errorf("wrong secret: err = %v", err)
	}
	if _, err := VerifyPaymentMessage(secret, body, now.Add(time.Hour)); !errors.Is(err, ErrInvalidPaymentSignature) {
		t.Errorf("stale message: err = %v", err)
	}

	msg.Event = json.RawMessage(`{"job_id":"` + event.JobID + `","outcome":"completed","reference":"pi_123","amount":1,"currency":"EUR"}`)
	tampered, _ := json.Marshal(msg)
	if _, err := VerifyPaymentMessage(secret, tampered, now); !errors.Is(err, ErrInvalidPaymentSignature) {
		t.Errorf("tampered amount: err = %v", err)
	}
}
