package queue

import (
	"context"
	"fmt"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	// TaskSettlementEvent is the asynq task type every settlement event is
	// published under.
	TaskSettlementEvent = "settlement:event"

	// QueueEvents is the queue the settlement events go to.
	QueueEvents = "events"
)

// eventEnvelope wraps an event with its name so the consumer can dispatch
// without knowing the concrete type up front.
type eventEnvelope struct {
	Name    string              `json:"name"`
	Payload jsoniter.RawMessage `json:"payload"`
}

// Bus publishes settlement events onto the asynq queue. Publication happens
// after the originating state transition committed; a failed enqueue is the
// caller's to log, never to abort on.
type Bus struct {
	client *asynq.Client
}

func NewBus(client *asynq.Client) *Bus {
	return &Bus{client: client}
}

func (b *Bus) Publish(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	envelope, err := json.Marshal(eventEnvelope{
		Name:    e.EventName(),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal envelope: %w", err)
	}

	task := asynq.NewTask(TaskSettlementEvent, envelope, asynq.Queue(QueueEvents))
	if _, err := b.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("client.EnqueueContext: %w", err)
	}

	return nil
}
