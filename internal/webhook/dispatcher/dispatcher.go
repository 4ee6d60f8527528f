// Package dispatcher fans an event out to every matching subscription.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopcore/shopcore/internal/event"
	"github.com/shopcore/shopcore/internal/webhook/delivery"
	"github.com/shopcore/shopcore/internal/webhook/repository"
)

// Logger defines the logging interface for the dispatcher.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Dispatcher validates event payloads, loads the matching active
// subscriptions, and runs first delivery attempts concurrently.
type Dispatcher struct {
	repo   repository.Repository
	engine *delivery.Engine
	logger Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the dispatcher.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(repo repository.Repository, engine *delivery.Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{repo: repo, engine: engine}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger delivers the event to every active subscription of the store that
// subscribes to it. It blocks until all first attempts complete; retries run
// in the background. A failing endpoint never affects delivery to the others
// and never surfaces as an error to the caller.
func (d *Dispatcher) Trigger(ctx context.Context, storeID, eventName string, data json.RawMessage) ([]delivery.Outcome, error) {
	if err := event.ValidatePayload(eventName, data); err != nil {
		return nil, err
	}

	subs, err := d.repo.ListActiveByEvent(ctx, storeID, eventName)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}

	if len(subs) == 0 {
		if d.logger != nil {
			d.logger.Debug("no subscriptions for event",
				"storeID", storeID,
				"event", eventName,
			)
		}
		return nil, nil
	}

	outcomes := make([]delivery.Outcome, len(subs))
	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = d.engine.DeliverTo(ctx, &subs[i], delivery.Task{
				StoreID:        storeID,
				SubscriptionID: subs[i].ID,
				Event:          eventName,
				Data:           data,
				Attempt:        1,
			})
		}(i)
	}
	wg.Wait()

	if d.logger != nil {
		delivered := 0
		for _, o := range outcomes {
			if o.Delivered {
				delivered++
			}
		}
		d.logger.Info("event dispatched",
			"storeID", storeID,
			"event", eventName,
			"subscriptions", len(subs),
			"delivered", delivered,
		)
	}
	return outcomes, nil
}
