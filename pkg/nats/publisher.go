package nats

import (
	"context"
	"fmt"

	"github.com/avelichko/storefront/pkg/config"
	"github.com/avelichko/storefront/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker/v2"
)

// NatsPublisher publishes events to JetStream behind a circuit breaker,
// so a broker outage does not hold every request hostage until its timeout.
type NatsPublisher struct {
	js jetstream.JetStream
	cb *gobreaker.CircuitBreaker[*jetstream.PubAck]
}

func NewNatsPublisher(js jetstream.JetStream, cfg config.CircuitBreakerConfig) *NatsPublisher {
	st := gobreaker.Settings{
		Name:        "nats-publisher-cb",
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(counts.TotalSuccesses+counts.TotalFailures > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(cfg.ErrorRatePercent))
		},
	}
	return &NatsPublisher{
		js: js,
		cb: gobreaker.NewCircuitBreaker[*jetstream.PubAck](st),
	}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	_, err = p.cb.Execute(func() (*jetstream.PubAck, error) {
		return p.js.Publish(ctx, event.Subject(), data)
	})
	return err
}
