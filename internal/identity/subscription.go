package identity

import (
	"sync"
	"sync/atomic"
)

// Event reports the current identity; User is nil when signed out.
type Event struct {
	User *User
}

// Subscription delivers auth-state events in order. Delivery never blocks
// the emitter; undelivered events queue until the subscriber reads C.
type Subscription struct {
	C <-chan Event

	out     chan Event
	wake    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	queue   []Event
	emitted atomic.Int64
	once    sync.Once
	detach  func()
}

func newSubscription(detach func()) *Subscription {
	out := make(chan Event)
	s := &Subscription{
		C:      out,
		out:    out,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		detach: detach,
	}
	go s.pump()
	return s
}

// Emitted returns how many events have been queued for this subscriber.
func (s *Subscription) Emitted() int64 {
	return s.emitted.Load()
}

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		close(s.done)
	})
}

func (s *Subscription) push(ev Event) {
	select {
	case <-s.done:
		return
	default:
	}
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.emitted.Add(1)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}
