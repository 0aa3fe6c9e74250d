package eventBus

import (
	"context"
	"sync"

	"github.com/Layr-Labs/offering-ledger/pkg/eventBus/eventBusTypes"
	"github.com/google/uuid"
)

// Recorder collects every event published on a bus until it is stopped.
type Recorder struct {
	bus      *EventBus
	consumer *eventBusTypes.Consumer
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.Mutex
	events []*eventBusTypes.Event
}

// NewRecorder subscribes to bus. Events published while the buffer is full are lost.
func NewRecorder(bus *EventBus, bufferSize int) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		bus: bus,
		consumer: &eventBusTypes.Consumer{
			Id:      eventBusTypes.ConsumerId("recorder-" + uuid.NewString()),
			Context: ctx,
			Channel: make(chan *eventBusTypes.Event, bufferSize),
		},
		cancel: cancel,
		done:   make(chan struct{}),
		events: make([]*eventBusTypes.Event, 0),
	}
	bus.Subscribe(r.consumer)
	go r.listen(ctx)
	return r
}

func (r *Recorder) listen(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case event := <-r.consumer.Channel:
			r.append(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-r.consumer.Channel:
					r.append(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) append(event *eventBusTypes.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Stop unsubscribes and returns the recorded events in publish order.
func (r *Recorder) Stop() []*eventBusTypes.Event {
	r.bus.Unsubscribe(r.consumer)
	r.cancel()
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}
