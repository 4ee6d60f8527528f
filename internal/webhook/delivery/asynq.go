package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeDeliver is the asynq task type for webhook delivery retries.
	TaskTypeDeliver = "webhook:deliver"

	// QueueWebhooks is the asynq queue carrying delivery tasks.
	QueueWebhooks = "webhooks"
)

// AsynqScheduler persists retry tasks in Redis via asynq, so pending retries
// survive process restarts.
type AsynqScheduler struct {
	client *asynq.Client
}

// NewAsynqScheduler creates a scheduler over an asynq client.
func NewAsynqScheduler(client *asynq.Client) *AsynqScheduler {
	return &AsynqScheduler{client: client}
}

// Schedule enqueues the task to be processed after the delay. Attempt
// accounting lives in the engine, so asynq-level retries are disabled.
func (s *AsynqScheduler) Schedule(ctx context.Context, task Task, delay time.Duration) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding delivery task: %w", err)
	}

	_, err = s.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeDeliver, payload),
		asynq.Queue(QueueWebhooks),
		asynq.MaxRetry(0),
		asynq.ProcessIn(delay),
	)
	if err != nil {
		return fmt.Errorf("enqueueing delivery task: %w", err)
	}
	return nil
}

// NewDeliveryTaskHandler returns the asynq handler that re-enters the engine
// for scheduled retries. The engine owns retry decisions, so the handler
// always reports success to asynq.
func NewDeliveryTaskHandler(engine *Engine) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var task Task
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("decoding delivery task: %w", err)
		}
		engine.Deliver(ctx, task)
		return nil
	}
}
