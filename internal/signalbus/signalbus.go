// Package signalbus publishes journaled signals over Redis pub/sub so that
// indexers and wallets can follow protocol activity.
//
// Delivery is at-most-once, as with any Redis pub/sub channel. The journal
// remains the source of truth; a consumer that falls behind re-reads it
// (guardvault trace) from the last seq it saw, which the publisher also
// records under <namespace>:last_seq.
package signalbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/guardvault/internal/codec"
	"github.com/roach88/guardvault/internal/ir"
)

// SignalsChannel is the pub/sub channel carrying CBOR-encoded signals.
func SignalsChannel(namespace string) string {
	return namespace + ":signals"
}

// LastSeqKey holds the seq of the newest published signal.
func LastSeqKey(namespace string) string {
	return namespace + ":last_seq"
}

// Bus is a namespaced connection to Redis. It is safe for concurrent use.
type Bus struct {
	rdb       *redis.Client
	namespace string
}

// New connects a bus for namespace. The connection is lazy; use Ping to
// check reachability.
func New(opts *redis.Options, namespace string) (*Bus, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &Bus{rdb: redis.NewClient(opts), namespace: namespace}, nil
}

// Close closes the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}

// Ping verifies Redis connectivity.
func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Publish sends signals in order and advances the last-seq marker, in one
// pipelined round trip. It satisfies engine.SignalSink.
func (b *Bus) Publish(ctx context.Context, signals []ir.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	payloads := make([][]byte, len(signals))
	for i, sig := range signals {
		data, err := codec.EncodeSignal(sig)
		if err != nil {
			return err
		}
		payloads[i] = data
	}

	channel := SignalsChannel(b.namespace)
	_, err := b.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range payloads {
			pipe.Publish(ctx, channel, p)
		}
		pipe.Set(ctx, LastSeqKey(b.namespace), signals[len(signals)-1].Seq, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %d signals: %w", len(signals), err)
	}
	return nil
}

// LastPublishedSeq returns the seq of the newest published signal, or 0
// if nothing has been published.
func (b *Bus) LastPublishedSeq(ctx context.Context) (int64, error) {
	seq, err := b.rdb.Get(ctx, LastSeqKey(b.namespace)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq, nil
}

// Subscription is a live feed of signals. Call Close when done.
type Subscription struct {
	events <-chan ir.Signal
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events delivers decoded signals. Closed when the subscription ends.
func (s *Subscription) Events() <-chan ir.Signal {
	return s.events
}

// Errors delivers undecodable payloads. The subscription keeps running
// after an error; the offending message is skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe follows the namespace's signal channel. It returns once Redis
// has confirmed the subscription, so signals published afterwards are
// not missed. Cancelling ctx also ends the subscription.
func (b *Bus) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, SignalsChannel(b.namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	events := make(chan ir.Signal, 16)
	errs := make(chan error, 16)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(events)
		defer close(errs)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				sig, err := codec.DecodeSignal([]byte(msg.Payload))
				if err != nil {
					select {
					case errs <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case events <- sig:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{events: events, errors: errs, cancel: cancel}, nil
}
