package registry

import (
	"sync"

	"github.com/cskr/pubsub"
	"github.com/google/uuid"
)

// TopicNetwork carries topology announcements; device deltas go to the
// topic named by the device id.
const TopicNetwork = "network"

// OnlineEvent announces a device joining the network, carrying its full
// state snapshot.
type OnlineEvent struct {
	DeviceID string         `json:"device_id"`
	State    map[string]any `json:"state"`
}

// OfflineEvent announces a device leaving the network.
type OfflineEvent struct {
	DeviceID string `json:"device_id"`
}

// UpdateEvent carries the structural diff produced by a device agent.
type UpdateEvent struct {
	DeviceID string         `json:"device_id"`
	Diff     map[string]any `json:"diff"`
}

// Subscription is one subscriber's handle. C delivers messages per-topic
// FIFO from a given publisher; slow subscribers drop the newest messages
// once their buffer fills.
type Subscription struct {
	ID     string
	Topics []string
	C      chan any
}

// PubSub fans device deltas and network announcements out to subscribers.
// Delivery never blocks publishers: each subscriber has a bounded channel
// and messages to a full channel are dropped (drop-newest).
type PubSub struct {
	broker *pubsub.PubSub

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewPubSub creates the fan-out with the given per-subscriber buffer.
func NewPubSub(capacity int) *PubSub {
	if capacity <= 0 {
		capacity = 64
	}
	return &PubSub{
		broker: pubsub.New(capacity),
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe registers interest in one or more topics. The same caller may
// subscribe any number of times.
func (p *PubSub) Subscribe(topics ...string) *Subscription {
	ch := p.broker.Sub(topics...)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Topics: topics,
		C:      ch,
	}
	p.mu.Lock()
	p.subs[sub.ID] = sub
	p.mu.Unlock()
	return sub
}

// Unsubscribe removes all of a subscription's topic entries and closes its
// channel.
func (p *PubSub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	p.mu.Lock()
	_, known := p.subs[sub.ID]
	delete(p.subs, sub.ID)
	p.mu.Unlock()
	if known {
		p.broker.Unsub(sub.C)
	}
}

// Publish delivers msg to every subscriber of topic without blocking.
func (p *PubSub) Publish(topic string, msg any) {
	p.broker.TryPub(msg, topic)
}

// Shutdown closes all subscriber channels.
func (p *PubSub) Shutdown() {
	p.mu.Lock()
	p.subs = make(map[string]*Subscription)
	p.mu.Unlock()
	p.broker.Shutdown()
}
