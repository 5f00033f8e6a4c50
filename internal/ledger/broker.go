package ledger

import "sync"

// Event types emitted by the strategies and re-emitted by the facade.
const (
	EventTransactionAdded   = "transaction:added"
	EventTransactionRemoved = "transaction:removed"
	EventScoresUpdated      = "scores:updated"
	EventScoreAdjusted      = "score:adjusted"
	EventSessionUpdated     = "session:updated"
	EventScanAdded          = "scan:added"
	EventSyncApplied        = "sync:applied"
	EventConnectionChanged  = "connection:changed"
)

// Event is a ledger change notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Broker is an in-process pub/sub for ledger events. Subscribers get a
// buffered channel; slow subscribers drop events rather than block the
// ledger.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel that receives ledger events. The channel is
// closed by Unsubscribe.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes the channel. Publish holds the read lock
// while sending, so closing after removal cannot race a send.
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Publish sends an event to all subscribers.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
