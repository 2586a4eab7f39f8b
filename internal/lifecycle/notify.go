package lifecycle

import "sync"

// subscriberBuffer is the per-subscriber channel capacity.
// Publishing never blocks the machine: a subscriber that falls more than a
// buffer behind misses transitions and should re-read the store.
const subscriberBuffer = 16

// Notifier is the transition publish/subscribe feed.
//
// The machine publishes after each committed conditional write, so
// subscribers observe only transitions that actually applied. This replaces
// implicit change-feed subscriptions with an explicit message-passing
// surface.
//
// Thread-safety: Subscribe, publish, and cancel functions are all safe for
// concurrent use.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Transition
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Transition)}
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. Cancel is idempotent and closes the channel.
func (n *Notifier) Subscribe() (<-chan Transition, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Transition, subscriberBuffer)
	n.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// publish delivers a transition to every subscriber.
// Non-blocking: a full subscriber buffer drops the transition for that
// subscriber rather than stalling the machine.
func (n *Notifier) publish(t Transition) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- t:
		default:
		}
	}
}
