package orders

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/veloramarket/loyalty-backend/pkg/logger"
)

// Runner consumes order.confirmed messages from Pub/Sub and feeds them to the
// consumer. Failed messages are nacked for redelivery.
type Runner struct {
	subscription *gcppubsub.Subscriber
	consumer     *Consumer
	logg         *logger.Logger
}

// NewRunner wires the subscription to the consumer.
func NewRunner(subscription *gcppubsub.Subscriber, consumer *Consumer, logg *logger.Logger) (*Runner, error) {
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if consumer == nil {
		return nil, errors.New("orders consumer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Runner{
		subscription: subscription,
		consumer:     consumer,
		logg:         logg,
	}, nil
}

// Run blocks consuming messages until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return r.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		logCtx := r.logg.WithFields(innerCtx, map[string]any{"message_id": msg.ID})
		if err := r.consumer.Process(logCtx, msg.Data); err != nil {
			r.logg.Error(logCtx, "order message failed", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
