// Package eventbus is a small in-process pub/sub used to fan events out to
// multiple interested goroutines (the SSE analytics stream, the reload
// coordinator's subscribers) without coupling publishers to a transport,
// keyed by named topic rather than a single fixed purpose.
package eventbus

import "sync"

// Bus fans events published on a topic out to every current subscriber.
// A publish that would block on a subscriber's full channel skips that
// subscriber for that message (non-blocking send); the subscriber stays
// registered. Delivery is best-effort.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[chan []byte]struct{}
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{topics: make(map[string]map[chan []byte]struct{})}
}

// Subscribe returns a channel that receives every message published to
// topic until Unsubscribe is called with it.
func (b *Bus) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[chan []byte]struct{})
		b.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel previously returned by Subscribe.
func (b *Bus) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[ch]; ok {
		delete(subs, ch)
		close(ch)
	}
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Publish sends payload to every current subscriber of topic. Slow
// subscribers are skipped rather than blocking the publisher.
func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.topics[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
}

// SubscriberCount reports how many subscribers a topic currently has, for
// diagnostics.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
