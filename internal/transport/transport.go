// Package transport carries state deltas between peers.
//
// Every transport offers the same narrow contract: publish an Envelope to all
// other connected peers, and hand envelopes published by other peers to a
// handler. Delivery is best effort; nothing is acknowledged or replayed.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is one broadcast message: a partial snapshot mapping collection
// names to the full new contents of that collection.
type Envelope struct {
	Peer        string                     `json:"peer"`
	Seq         uint64                     `json:"seq"`
	SentAt      time.Time                  `json:"sent_at"`
	Collections map[string]json.RawMessage `json:"collections"`
}

// Handler receives envelopes published by other peers.
type Handler func(Envelope)

// Transport is the publish/subscribe contract the store depends on.
type Transport interface {
	// Publish sends env to every other connected peer.
	Publish(ctx context.Context, env Envelope) error
	// Subscribe registers h and returns once delivery is set up. Delivery
	// stops when ctx is done or the transport is closed.
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}

// Encode marshals an envelope for the wire.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// Decode unmarshals an envelope read from the wire.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Peer == "" {
		return Envelope{}, fmt.Errorf("failed to decode envelope: missing peer id")
	}
	return env, nil
}

// Nop drops everything it is given. It serves a peer running alone.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error   { return nil }
func (Nop) Subscribe(context.Context, Handler) error { return nil }
func (Nop) Close() error                             { return nil }
