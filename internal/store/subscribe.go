package store

import (
	"context"
	"sync"
)

// Origin tells where a change came from.
type Origin string

const (
	OriginLocal     Origin = "local"
	OriginRemote    Origin = "remote"
	OriginBootstrap Origin = "bootstrap"
)

// Change announces that one collection was replaced.
type Change struct {
	Collection Collection
	Origin     Origin
	Peer       string
	Seq        uint64

	snap *Snapshot
}

// Data returns a copy of the full updated collection.
func (c Change) Data() any {
	if c.snap == nil {
		return nil
	}
	return c.snap.Collection(c.Collection)
}

// Snapshot returns a copy of the whole snapshot the change belongs to.
func (c Change) Snapshot() Snapshot {
	if c.snap == nil {
		return Snapshot{}
	}
	return c.snap.Clone()
}

// Subscription receives changes until closed.
//
// Pending changes are coalesced per collection: while the subscriber is
// behind, a newer change to a collection replaces the queued one. The latest
// state of every changed collection is always delivered, and the store never
// waits on a subscriber.
type Subscription struct {
	ch    chan Change
	store *Store

	mu      sync.Mutex
	pending []Change
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Subscribe registers a subscription whose channel holds up to buffer
// changes. Further changes wait in the subscription, one per collection.
func (s *Store) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &Subscription{
		ch:    make(chan Change, buffer),
		store: s,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go sub.pump()

	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()
	s.metrics.AddSubscribers(1)
	return sub
}

// OnChange calls fn for every change until ctx is done.
func (s *Store) OnChange(ctx context.Context, fn func(Change)) {
	sub := s.Subscribe(0)
	go func() {
		defer sub.Close()
		for {
			select {
			case change, ok := <-sub.C():
				if !ok {
					return
				}
				fn(change)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// C returns the channel changes arrive on. It is closed after Close.
func (sub *Subscription) C() <-chan Change {
	return sub.ch
}

// Close unregisters the subscription and closes its channel.
func (sub *Subscription) Close() {
	s := sub.store
	s.subsMu.Lock()
	_, ok := s.subs[sub]
	delete(s.subs, sub)
	s.subsMu.Unlock()

	if ok {
		sub.stop()
		s.metrics.AddSubscribers(-1)
	}
}

func (sub *Subscription) stop() {
	sub.once.Do(func() { close(sub.done) })
}

// offer queues c, replacing a pending change to the same collection. It
// reports whether a pending change was superseded.
func (sub *Subscription) offer(c Change) bool {
	sub.mu.Lock()
	superseded := false
	for i := range sub.pending {
		if sub.pending[i].Collection == c.Collection {
			sub.pending = append(sub.pending[:i], sub.pending[i+1:]...)
			superseded = true
			break
		}
	}
	sub.pending = append(sub.pending, c)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
	return superseded
}

func (sub *Subscription) next() (Change, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if len(sub.pending) == 0 {
		return Change{}, false
	}
	c := sub.pending[0]
	sub.pending = sub.pending[1:]
	return c, true
}

// pump moves pending changes onto the channel in the order they were queued.
func (sub *Subscription) pump() {
	defer close(sub.ch)
	for {
		select {
		case <-sub.wake:
		case <-sub.done:
			return
		}
		for {
			c, ok := sub.next()
			if !ok {
				break
			}
			select {
			case sub.ch <- c:
			case <-sub.done:
				return
			}
		}
	}
}

// notify hands one Change per collection to every subscriber. It runs inside
// the writer lock so each subscriber queues changes in commit order.
func (s *Store) notify(snap *Snapshot, changed []Collection, origin Origin, peer string, seq uint64) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for _, c := range changed {
		change := Change{Collection: c, Origin: origin, Peer: peer, Seq: seq, snap: snap}
		for sub := range s.subs {
			if sub.offer(change) {
				s.logger.Debug("subscriber behind, superseding queued change",
					"action", "notify", "collection", string(c), "seq", seq)
			}
		}
	}
}
