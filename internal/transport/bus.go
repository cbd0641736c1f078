package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned when publishing on a closed transport.
var ErrClosed = errors.New("transport closed")

// Bus connects peers living in the same process, such as several terminals
// simulated by one server or peers under test.
type Bus struct {
	mu     sync.RWMutex
	peers  map[string]*BusPeer
	buffer int
	logger *slog.Logger
}

// NewBus creates an in-process bus. buffer bounds each peer's inbox.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		peers:  make(map[string]*BusPeer),
		buffer: buffer,
		logger: logger,
	}
}

// Join attaches a peer to the bus. Joining twice with the same id replaces
// the earlier peer.
func (b *Bus) Join(peerID string) *BusPeer {
	p := &BusPeer{
		id:    peerID,
		bus:   b,
		inbox: make(chan Envelope, b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if old, ok := b.peers[peerID]; ok {
		old.shutdown()
	}
	b.peers[peerID] = p
	b.mu.Unlock()
	return p
}

func (b *Bus) leave(p *BusPeer) {
	b.mu.Lock()
	if b.peers[p.id] == p {
		delete(b.peers, p.id)
	}
	b.mu.Unlock()
}

func (b *Bus) broadcast(from string, env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, p := range b.peers {
		if id == from {
			continue
		}
		select {
		case p.inbox <- env:
		case <-p.done:
		default:
			b.logger.Warn("peer inbox full, dropping delta",
				"action", "bus_drop", "peer", id, "from", from, "seq", env.Seq)
		}
	}
}

// BusPeer is one peer's Transport on a Bus.
type BusPeer struct {
	id    string
	bus   *Bus
	inbox chan Envelope

	once sync.Once
	done chan struct{}
}

// Publish hands env to every other peer's inbox without waiting for delivery.
func (p *BusPeer) Publish(_ context.Context, env Envelope) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	p.bus.broadcast(p.id, env)
	return nil
}

// Subscribe starts a goroutine draining the inbox into h in arrival order.
func (p *BusPeer) Subscribe(ctx context.Context, h Handler) error {
	go func() {
		for {
			select {
			case env := <-p.inbox:
				h(env)
			case <-ctx.Done():
				return
			case <-p.done:
				return
			}
		}
	}()
	return nil
}

// Close detaches the peer from the bus.
func (p *BusPeer) Close() error {
	p.shutdown()
	p.bus.leave(p)
	return nil
}

func (p *BusPeer) shutdown() {
	p.once.Do(func() { close(p.done) })
}
