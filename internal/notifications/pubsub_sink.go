package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/multierr"
)

const defaultPublishTimeout = 10 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubSink publishes one message per obligation to a Pub/Sub topic so an
// external delivery service can fan out email or push.
type PubSubSink struct {
	pub     publisher
	timeout time.Duration
}

// NewPubSubSink wraps a Pub/Sub publisher.
func NewPubSubSink(p *gcppubsub.Publisher) (*PubSubSink, error) {
	if p == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &PubSubSink{pub: &gcpPublisher{Publisher: p}, timeout: defaultPublishTimeout}, nil
}

type obligationMessage struct {
	Obligation
	EmittedAt time.Time `json:"emitted_at"`
}

func (s *PubSubSink) Deliver(ctx context.Context, obligations []Obligation) error {
	if len(obligations) == 0 {
		return nil
	}
	publishCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	emittedAt := time.Now().UTC()
	results := make([]publishResult, 0, len(obligations))
	var errs error
	for _, o := range obligations {
		payload, err := json.Marshal(obligationMessage{Obligation: o, EmittedAt: emittedAt})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("encode obligation: %w", err))
			continue
		}
		msg := &gcppubsub.Message{
			Data: payload,
			Attributes: map[string]string{
				"template":       string(o.Template),
				"recipient_role": string(o.Recipient.Role),
				"reference_id":   o.ReferenceID.String(),
			},
		}
		result := s.pub.Publish(publishCtx, msg)
		if result == nil {
			errs = multierr.Append(errs, errors.New("publisher returned nil result"))
			continue
		}
		results = append(results, result)
	}
	for _, result := range results {
		if _, err := result.Get(publishCtx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish obligation: %w", err))
		}
	}
	return errs
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
