package fleet

import "sync"

// Subscriber receives broadcast events. Deliver must not block; a subscriber
// that cannot accept an event returns an error and is dropped from the
// dispatcher. Delivery is best-effort, at-most-once, never retried.
type Subscriber interface {
	Deliver(Event) error
}

// Handle identifies one subscription for later removal.
type Handle uint64

// Dispatcher fans announcements out to every live subscriber. There is a
// single implicit topic: every subscriber receives every event, and filtering
// (if any) happens client-side.
type Dispatcher struct {
	mu   sync.Mutex
	next Handle
	subs map[Handle]Subscriber
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: map[Handle]Subscriber{}}
}

func (d *Dispatcher) Subscribe(s Subscriber) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.subs[d.next] = s
	return d.next
}

func (d *Dispatcher) Unsubscribe(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, h)
}

// Publish delivers ev to every current subscriber and returns how many
// deliveries succeeded and how many subscribers were dropped. A failing
// subscriber is removed on the spot; its error never reaches the caller.
func (d *Dispatcher) Publish(ev Event) (delivered, dropped int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, s := range d.subs {
		if err := s.Deliver(ev); err != nil {
			delete(d.subs, h)
			dropped++
			continue
		}
		delivered++
	}
	return delivered, dropped
}

func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
