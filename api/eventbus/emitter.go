package eventbus

import (
	"sync"

	"github.com/cskr/pubsub/v2"
)

// subscriberBuffer is the per-subscriber channel capacity. Publishes to a
// subscriber with a full channel are dropped rather than blocking the
// producing stream.
const subscriberBuffer = 10

// EventHandler delivers published events to subscribers. The process-wide
// handler can be replaced to bridge the stream onto an embedding
// application's own bus, or disabled outright.
type EventHandler interface {
	// Publish publishes an event to the sensor event stream.
	Publish(id uint, name string, data any)

	// Subscribe subscribes to a topic on the sensor event stream.
	Subscribe(id uint, name string) SubscriberID
}

var handler struct {
	mu sync.RWMutex
	h  EventHandler
}

func init() {
	RegisterEventHandler(DefaultHandler())
}

// RegisterEventHandler replaces the process-wide event handler. A nil
// handler is ignored.
func RegisterEventHandler(eh EventHandler) {
	if eh == nil {
		return
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()

	handler.h = eh
}

// DisableEvents discards published events until another handler is
// registered.
func DisableEvents() {
	RegisterEventHandler(disabledHandler{})
}

// Publish publishes data on the given topic.
func Publish(id EventID, data any) {
	if id == nil {
		return
	}

	handler.mu.RLock()
	h := handler.h
	handler.mu.RUnlock()

	h.Publish(id.Value(), id.String(), data)
}

// Subscribe opens a subscription on the given topic.
func Subscribe(id EventID) SubscriberID {
	if id == nil {
		return disabledHandler{}.Subscribe(0, "")
	}

	handler.mu.RLock()
	h := handler.h
	handler.mu.RUnlock()

	return h.Subscribe(id.Value(), id.String())
}

// busHandler fans events out to in-process subscribers.
type busHandler struct {
	*pubsub.PubSub[uint, any]
}

// DefaultHandler returns the in-process fan-out handler.
func DefaultHandler() EventHandler {
	return &busHandler{PubSub: pubsub.New[uint, any](subscriberBuffer)}
}

func (b *busHandler) Publish(id uint, name string, data any) {
	b.TryPub(data, id)
}

func (b *busHandler) Subscribe(id uint, name string) SubscriberID {
	ch := b.Sub(id)
	return SubscriberID{
		C:      ch,
		active: true,
		unsub: func() {
			go b.Unsub(ch, id)
		},
	}
}

// disabledHandler drops publishes and returns closed subscriptions.
type disabledHandler struct{}

func (disabledHandler) Publish(uint, string, any) {}

func (disabledHandler) Subscribe(uint, string) SubscriberID {
	ch := make(chan any)
	close(ch)
	return SubscriberID{C: ch}
}
