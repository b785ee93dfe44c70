package events

import (
	"sync"
	"sync/atomic"

	"axiomind/internal/apperr"
)

const DefaultCapacity = 256

var ErrSessionNotFound = apperr.New(apperr.ErrNotFound, "session_not_found", "no event stream for session")

// Subscription is one subscriber's bounded queue. When the queue is full the
// oldest undelivered event is dropped.
type Subscription struct {
	sessionID string
	seat      int
	ch        chan Event
	closed    atomic.Bool
	dropped   atomic.Uint64
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Seat() int { return s.seat }

func (s *Subscription) SessionID() string { return s.sessionID }

// Dropped counts events lost to a full queue.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close detaches the subscriber. The queue is reaped by the next broadcast
// or sweep; the channel is closed then.
func (s *Subscription) Close() {
	s.closed.Store(true)
}

type sessionSubs struct {
	seq  uint64
	subs []*Subscription
}

// Bus fans events out per session.
type Bus struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*sessionSubs
}

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{capacity: capacity, sessions: map[string]*sessionSubs{}}
}

// Open registers a session so it can be subscribed to.
func (b *Bus) Open(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[sessionID]; !ok {
		b.sessions[sessionID] = &sessionSubs{}
	}
}

// Subscribe attaches a queue for sessionID. seat selects whose CardsDealt
// events arrive with cards; -1 sees none.
func (b *Bus) Subscribe(sessionID string, seat int) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ss, ok := b.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sub := &Subscription{sessionID: sessionID, seat: seat, ch: make(chan Event, b.capacity)}
	ss.subs = append(ss.subs, sub)
	return sub, nil
}

// Broadcast stamps ev with the next sequence number for its session and
// enqueues it for every live subscriber. It never blocks.
func (b *Bus) Broadcast(sessionID string, ev Event) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ss, ok := b.sessions[sessionID]
	if !ok {
		return ev, false
	}
	ss.seq++
	ev.SessionID = sessionID
	ev.Seq = ss.seq
	live := ss.subs[:0]
	for _, sub := range ss.subs {
		if sub.closed.Load() {
			close(sub.ch)
			continue
		}
		sub.push(ev.forSeat(sub.seat))
		live = append(live, sub)
	}
	clear(ss.subs[len(live):])
	ss.subs = live
	return ev, true
}

func (s *Subscription) push(ev Event) {
	select {
	case s.ch <- ev:
		return
	default:
	}
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// DropSession closes every subscriber of sessionID and forgets it.
func (b *Bus) DropSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ss, ok := b.sessions[sessionID]
	if !ok {
		return
	}
	for _, sub := range ss.subs {
		close(sub.ch)
	}
	delete(b.sessions, sessionID)
}

// Sweep reaps closed subscribers across all sessions and returns how many
// were removed.
func (b *Bus) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for _, ss := range b.sessions {
		live := ss.subs[:0]
		for _, sub := range ss.subs {
			if sub.closed.Load() {
				close(sub.ch)
				removed++
				continue
			}
			live = append(live, sub)
		}
		clear(ss.subs[len(live):])
		ss.subs = live
	}
	return removed
}

// Subscribers reports the live subscriber count for sessionID.
func (b *Bus) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ss, ok := b.sessions[sessionID]
	if !ok {
		return 0
	}
	n := 0
	for _, sub := range ss.subs {
		if !sub.closed.Load() {
			n++
		}
	}
	return n
}

func (b *Bus) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
