// Package eventBus provides a simple publish-subscribe mechanism for ledger events.
// Publishing never blocks: consumers with a full or nil channel miss the event.
package eventBus

import (
	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventBus struct {
	consumers *eventBusTypes.ConsumerList
	logger    *zap.Logger
}

func NewEventBus(l *zap.Logger) *EventBus {
	return &EventBus{
		consumers: eventBusTypes.NewConsumerList(),
		logger:    l,
	}
}

func (eb *EventBus) Subscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Add(consumer)
	eb.logger.Sugar().Debugw("Subscribed consumer", zap.String("consumerId", string(consumer.Id)))
}

func (eb *EventBus) Unsubscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Remove(consumer)
	eb.logger.Sugar().Infow("Unsubscribed consumer", zap.String("consumerId", string(consumer.Id)))
}

// Publish assigns an id to events that lack one and delivers them to every consumer
// whose channel has room. Consumers with a cancelled context are skipped.
func (eb *EventBus) Publish(event *eventBusTypes.Event) {
	if event.Id == "" {
		event.Id = uuid.NewString()
	}
	eb.logger.Sugar().Debugw("Publishing event",
		zap.String("eventId", event.Id),
		zap.String("eventName", event.Name.String()),
	)
	for _, consumer := range eb.consumers.GetAll() {
		if consumer.Context != nil && consumer.Context.Err() != nil {
			continue
		}
		if consumer.Channel == nil {
			eb.logger.Sugar().Debugw("Consumer channel is nil", zap.String("consumerId", string(consumer.Id)))
			continue
		}
		select {
		case consumer.Channel <- event:
			eb.logger.Sugar().Debugw("Published event to consumer",
				zap.String("consumerId", string(consumer.Id)),
				zap.String("eventName", event.Name.String()),
			)
		default:
			eb.logger.Sugar().Debugw("No receiver available, or channel is full",
				zap.String("consumerId", string(consumer.Id)),
				zap.String("eventName", event.Name.String()),
			)
		}
	}
}
