package service

import "sync"

// EventType names what happened
type EventType string

const (
	EventAssetChanged EventType = "asset_changed"
	EventAssetRemoved EventType = "asset_removed"
	EventReload       EventType = "reload"
)

// Event is what browsers receive on the live-reload stream
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// AssetPayload names the asset an event is about, relative to the
// served root
type AssetPayload struct {
	Path string `json:"path"`
}

// EventBus delivers published events to subscribed channels. Publish never
// blocks: a subscriber whose channel is full misses the event.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan<- Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan<- Event]struct{})}
}

// Subscribe registers ch until Unsubscribe
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	eb.subs[ch] = struct{}{}
	eb.mu.Unlock()
}

// Unsubscribe stops deliveries to ch
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	delete(eb.subs, ch)
	eb.mu.Unlock()
}

// Publish offers event to every subscriber
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for ch := range eb.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
