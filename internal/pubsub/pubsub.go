// Package pubsub is the in-process event fanout. Delivery is
// at-most-once and ephemeral: events published while nobody listens on
// a topic are dropped, and a subscriber that cannot keep up loses
// events rather than blocking publishers. Within a topic, events reach
// every listener in publish order; there is no ordering across topics.
package pubsub

import (
	"sync"
	"time"

	"confessly/pkg/logger"

	"github.com/google/uuid"
)

// Event types published by the lifecycle and notification services.
const (
	EventMessageCreated      = "message.created"
	EventChatStarted         = "chat.started"
	EventChatUpdated         = "chat.updated"
	EventChatEnded           = "chat.ended"
	EventNotificationCreated = "notification.created"
	EventNotificationsSeen   = "notifications.seen"
)

// Event is one item delivered to topic subscribers.
type Event struct {
	Topic       Topic       `json:"-"`
	Type        string      `json:"type"`
	Payload     interface{} `json:"payload,omitempty"`
	PublishedAt time.Time   `json:"published_at"`
}

// Subscription is one listener's handle on a topic. Close deregisters
// it; closing twice is safe.
type Subscription struct {
	id     string
	topic  Topic
	ch     chan Event
	broker *Broker
	once   sync.Once
}

// Events returns the delivery channel. It is closed when the
// subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Close deregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
	})
}

// Broker is the topic registry. One instance is created at process
// start and injected into every service that publishes.
type Broker struct {
	mu          sync.Mutex
	subscribers map[Topic]map[string]*Subscription
	buffer      int
}

// NewBroker creates an empty broker. Each subscription buffers up to
// 32 undelivered events before the broker starts dropping for it.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Topic]map[string]*Subscription),
		buffer:      32,
	}
}

// Subscribe registers a listener on a topic.
func (b *Broker) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		topic:  topic,
		ch:     make(chan Event, b.buffer),
		broker: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		subs = make(map[string]*Subscription)
		b.subscribers[topic] = subs
	}
	subs[sub.id] = sub

	return sub
}

// Publish delivers an event to every current subscriber of the topic.
// Publishing to a topic with no subscribers is a no-op. Publish never
// blocks: a subscriber whose buffer is full misses the event.
func (b *Broker) Publish(topic Topic, eventType string, payload interface{}) {
	ev := Event{
		Topic:       topic,
		Type:        eventType,
		Payload:     payload,
		PublishedAt: time.Now(),
	}

	// Sends happen under the registry lock so that all subscribers
	// observe events on one topic in the same order.
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers[topic] {
		select {
		case sub.ch <- ev:
		default:
			logger.WithFields(map[string]interface{}{
				"topic":      topic.String(),
				"event_type": eventType,
			}).Debug("dropping event for slow subscriber")
		}
	}
}

// SubscriberCount reports the number of live subscriptions on a topic.
func (b *Broker) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[topic])
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[sub.topic]
	if !ok {
		return
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(b.subscribers, sub.topic)
	}

	// Closed under the lock so Publish can never send on a closed
	// channel.
	close(sub.ch)
}
