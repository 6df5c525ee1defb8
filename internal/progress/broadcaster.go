// Package progress implements the per-scan progress broadcaster (C9): a
// process-wide map of scan id to a lossy, multi-subscriber event bus.
package progress

import (
	"sync"

	"github.com/codenerd-labs/auditor/internal/logging"
)

// DoneSentinel is the terminal event every channel's producer publishes
// exactly once before the channel is removed.
const DoneSentinel = "__DONE__"

const subscriberBufferSize = 32

// Broadcaster owns the scan-id -> topic map. The zero value is not
// usable; construct with New.
type Broadcaster struct {
	mu     sync.Mutex
	topics map[string]*topic
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{topics: make(map[string]*topic)}
}

type topic struct {
	mu          sync.Mutex
	subscribers map[int]chan string
	nextID      int
}

// Sender publishes events onto a single scan's channel.
type Sender interface {
	Publish(event string)
}

// Receiver consumes events from a single subscription. Calling Close
// unsubscribes without affecting other receivers.
type Receiver interface {
	Events() <-chan string
	Close()
}

// CreateChannel creates (or replaces) the topic for scanID. Replacing an
// existing topic closes all of its previous subscribers, per spec.md
// §4.9.
func (b *Broadcaster) CreateChannel(scanID string) Sender {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.topics[scanID]; ok {
		old.closeAll()
	}
	t := &topic{subscribers: make(map[int]chan string)}
	b.topics[scanID] = t
	logging.Progress().Debugw("channel created", "scan_id", scanID)
	return t
}

// Subscribe returns a Receiver for scanID's current topic. Late
// subscribers see no replay — only events published after this call.
// Subscribing to an unknown scan id returns ok == false.
func (b *Broadcaster) Subscribe(scanID string) (Receiver, bool) {
	b.mu.Lock()
	t, ok := b.topics[scanID]
	b.mu.Unlock()
	if !ok {
		return nil, false
	}
	return t.subscribe(), true
}

// Publish sends event to every current subscriber of scanID.
// Non-blocking: a slow subscriber whose buffer is full has its oldest
// buffered event dropped to make room, per spec.md §4.9.
func (b *Broadcaster) Publish(scanID, event string) {
	b.mu.Lock()
	t, ok := b.topics[scanID]
	b.mu.Unlock()
	if !ok {
		return
	}
	t.publish(event)
}

// RemoveChannel closes every subscriber and forgets scanID's topic.
// Call after the terminal sentinel has been published.
func (b *Broadcaster) RemoveChannel(scanID string) {
	b.mu.Lock()
	t, ok := b.topics[scanID]
	delete(b.topics, scanID)
	b.mu.Unlock()
	if ok {
		t.closeAll()
	}
	logging.Progress().Debugw("channel removed", "scan_id", scanID)
}

func (t *topic) subscribe() Receiver {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	ch := make(chan string, subscriberBufferSize)
	t.subscribers[id] = ch
	return &receiver{topic: t, id: id, ch: ch}
}

func (t *topic) publish(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subscribers {
		select {
		case ch <- event:
		default:
			// Buffer full: drop the oldest queued event, then retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

func (t *topic) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.subscribers {
		close(ch)
		delete(t.subscribers, id)
	}
}

func (t *topic) unsubscribe(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.subscribers[id]; ok {
		close(ch)
		delete(t.subscribers, id)
	}
}

// Publish implements Sender by publishing directly on this topic,
// bypassing the Broadcaster's map lookup (used by the holder returned
// from CreateChannel).
func (t *topic) Publish(event string) {
	t.publish(event)
}

type receiver struct {
	topic *topic
	id    int
	ch    chan string
}

func (r *receiver) Events() <-chan string { return r.ch }
func (r *receiver) Close()                { r.topic.unsubscribe(r.id) }
