package notifications

import (
	"context"

	"go.uber.org/multierr"

	"github.com/angelmondragon/escrowmarket/pkg/logger"
)

// Sink delivers obligations. Implementations must tolerate being called after
// the producing transaction has committed.
type Sink interface {
	Deliver(ctx context.Context, obligations []Obligation) error
}

// MultiSink fans out to every sink and combines their errors.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, obligations []Obligation) error {
	var err error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		err = multierr.Append(err, sink.Deliver(ctx, obligations))
	}
	return err
}

// Dispatcher hands obligations to a sink and swallows delivery failures after
// logging them; a committed transition is never undone by its messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, obligations []Obligation)
}

type dispatcher struct {
	sink Sink
	logg *logger.Logger
}

// NewDispatcher wires a dispatcher. A nil sink drops everything.
func NewDispatcher(sink Sink, logg *logger.Logger) Dispatcher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &dispatcher{sink: sink, logg: logg}
}

func (d *dispatcher) Dispatch(ctx context.Context, obligations []Obligation) {
	if d.sink == nil || len(obligations) == 0 {
		return
	}
	if err := d.sink.Deliver(ctx, obligations); err != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"template":     string(obligations[0].Template),
			"reference_id": obligations[0].ReferenceID.String(),
			"count":        len(obligations),
		})
		for _, e := range multierr.Errors(err) {
			d.logg.Error(logCtx, "notification delivery failed", e)
		}
	}
}

// Discard is a Dispatcher that drops every obligation.
type Discard struct{}

func (Discard) Dispatch(context.Context, []Obligation) {}
