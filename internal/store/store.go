// Package store is the authoritative in-memory state of one peer.
//
// Every peer holds a full Snapshot. Local mutations are validated, committed
// to the local snapshot and then published to the other peers as a delta
// carrying the whole changed collections. Incoming deltas replace the local
// collections they name (last write wins per collection). There is no
// per-entity merge: two peers editing the same collection within one
// round trip can overwrite each other, and a lost delta leaves peers
// diverged until the next write to that collection.
//
// A peer that joins late only sees what its own Loader returns; it does not
// ask connected peers for their live state.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tablesync/internal/lifecycle"
	"tablesync/internal/models"
	"tablesync/internal/monitoring"
	"tablesync/internal/transport"

	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// Loader produces the initial snapshot of a peer.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Snapshot, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (Snapshot, error) { return f(ctx) }

// StaticLoader always returns a copy of snap.
func StaticLoader(snap Snapshot) Loader {
	return LoaderFunc(func(context.Context) (Snapshot, error) {
		return snap.Clone(), nil
	})
}

// Options configures a Store.
type Options struct {
	PeerID    string
	Transport transport.Transport
	Loader    Loader
	Notifier  lifecycle.Notifier
	Metrics   *monitoring.Metrics
	Monitor   *monitoring.Monitor
	Logger    *slog.Logger
	Clock     func() time.Time
	NewID     func() string
}

// Store owns the canonical collections of one peer.
type Store struct {
	peerID    string
	transport transport.Transport
	loader    Loader
	notifier  lifecycle.Notifier
	metrics   *monitoring.Metrics
	monitor   *monitoring.Monitor
	logger    *slog.Logger
	clock     func() time.Time
	newID     func() string

	// mu serializes writers: local mutations, peer merges and bootstrap.
	mu          sync.Mutex
	seq         uint64
	initialized atomic.Bool
	snap        atomic.Pointer[Snapshot]

	subsMu sync.RWMutex
	subs   map[*Subscription]struct{}
}

// New creates a store with an empty snapshot. Call FetchInitialData before
// issuing mutations.
func New(opts Options) *Store {
	if opts.PeerID == "" {
		opts.PeerID = uuid.NewString()
	}
	if opts.Transport == nil {
		opts.Transport = transport.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &Store{
		peerID:    opts.PeerID,
		transport: opts.Transport,
		loader:    opts.Loader,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		monitor:   opts.Monitor,
		logger:    opts.Logger.With("peer", opts.PeerID),
		clock:     opts.Clock,
		newID:     opts.NewID,
		subs:      make(map[*Subscription]struct{}),
	}
	s.snap.Store(&Snapshot{})
	return s
}

// PeerID returns the id this store publishes under.
func (s *Store) PeerID() string {
	return s.peerID
}

// Initialized reports whether the initial snapshot has been loaded.
func (s *Store) Initialized() bool {
	return s.initialized.Load()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	return s.snap.Load().Clone()
}

// FetchInitialData loads the initial snapshot through the Loader. Once it has
// succeeded, later calls do nothing. A failed load can be retried.
func (s *Store) FetchInitialData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized.Load() {
		return nil
	}
	if s.loader == nil {
		return fmt.Errorf("failed to load initial data: no loader configured")
	}

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load initial data: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("failed to load initial data: %w", err)
	}

	s.snap.Store(&snap)
	s.initialized.Store(true)
	s.monitor.RecordBootstrap(s.clock())
	s.logger.Info("initial data loaded",
		"action", "bootstrap",
		"tables", len(snap.Tables),
		"menu", len(snap.Menu),
		"orders", len(snap.Orders),
	)

	s.notify(&snap, Collections, OriginBootstrap, s.peerID, 0)
	return nil
}

// Start subscribes the store to peer deltas. Delivery stops when ctx is done.
func (s *Store) Start(ctx context.Context) error {
	if err := s.transport.Subscribe(ctx, func(env transport.Envelope) {
		_ = s.HandleEnvelope(env)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to peers: %w", err)
	}
	return nil
}

// Close ends every open subscription.
func (s *Store) Close() {
	s.subsMu.Lock()
	subs := s.subs
	s.subs = make(map[*Subscription]struct{})
	s.subsMu.Unlock()

	for sub := range subs {
		sub.stop()
		s.metrics.AddSubscribers(-1)
	}
}

// HandleEnvelope merges a delta published by another peer. Envelopes carrying
// this store's own peer id are ignored.
func (s *Store) HandleEnvelope(env transport.Envelope) error {
	if env.Peer == s.peerID {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed, err := mergeEnvelope(s.snap.Load(), env)
	if err != nil {
		s.logger.Error("dropping peer delta", "action", "merge", "from", env.Peer, "seq", env.Seq, "error", err)
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	s.snap.Store(next)

	names := collectionNames(changed)
	now := s.clock()
	age := -1.0
	if !env.SentAt.IsZero() {
		age = now.Sub(env.SentAt).Seconds()
	}
	s.metrics.RecordReceived(names, age)
	s.monitor.RecordReceive(env.Peer, env.Seq, now)
	s.logger.Debug("merged peer delta", "action", "merge", "from", env.Peer, "seq", env.Seq, "collections", names)

	s.notify(next, changed, OriginRemote, env.Peer, env.Seq)
	return nil
}

// mutation computes the next snapshot from the current one. It must not
// modify cur and returns the collections it replaced.
type mutation func(cur *Snapshot) (*Snapshot, []Collection, error)

// apply validates and commits a local mutation, then publishes it. A
// rejected mutation leaves the snapshot untouched.
func (s *Store) apply(ctx context.Context, op string, m mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized.Load() {
		s.metrics.RecordMutation(op, models.ErrNotInitialized)
		return models.ErrNotInitialized
	}

	next, changed, err := m(s.snap.Load())
	s.metrics.RecordMutation(op, err)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}

	seq := s.commit(next)
	s.notify(next, changed, OriginLocal, s.peerID, seq)
	s.publish(ctx, op, seq, next, changed)
	return nil
}

// commit makes next the current snapshot and returns its sequence number.
// Local readers see the new state from here on, before any peer does.
func (s *Store) commit(next *Snapshot) uint64 {
	s.snap.Store(next)
	s.seq++
	return s.seq
}

// publish sends the changed collections to the other peers. Failures are
// logged and counted; the local commit stands either way.
func (s *Store) publish(ctx context.Context, op string, seq uint64, snap *Snapshot, changed []Collection) {
	names := collectionNames(changed)
	payload, err := encodeCollections(snap, changed)
	if err != nil {
		s.metrics.RecordPublishError()
		s.logger.Error("failed to encode delta", "action", "publish", "op", op, "seq", seq, "error", err)
		return
	}

	now := s.clock()
	env := transport.Envelope{
		Peer:        s.peerID,
		Seq:         seq,
		SentAt:      now,
		Collections: payload,
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.transport.Publish(pctx, env); err != nil {
		s.metrics.RecordPublishError()
		s.logger.Warn("failed to publish delta", "action", "publish", "op", op, "seq", seq, "error", err)
		return
	}
	s.metrics.RecordPublished(names)
	s.monitor.RecordPublish(seq, now)
	s.logger.Debug("published delta", "action", "publish", "op", op, "seq", seq, "collections", names)
}

func collectionNames(cs []Collection) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c)
	}
	return names
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

// IsValidation reports whether err is one of the caller-facing validation
// failures rather than an internal error.
func IsValidation(err error) bool {
	for _, target := range []error{
		models.ErrInvalidTransition,
		models.ErrNotFound,
		models.ErrEmptyCart,
		models.ErrNoTableSelected,
		models.ErrItemUnavailable,
		models.ErrInvalidStatus,
		models.ErrInvalidReservation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
