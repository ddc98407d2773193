package balancer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmehdipour/energymon/internal/metrics"
)

var ErrNoQueues = errors.New("no replica queues configured")

type producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Balancer fans the inbound measurement stream out across the replica queues
// in pure round robin, no affinity to device id. The counter is process-wide
// and atomic because the worker may call Forward concurrently for multiple
// in-flight messages; overflow wraps with unsigned modulo and never skips a
// queue. The queue list is fixed at construction.
type Balancer struct {
	producer producer
	queues   []string
	counter  atomic.Uint64
}

func New(p producer, queues []string) (*Balancer, error) {
	if len(queues) == 0 {
		return nil, ErrNoQueues
	}
	return &Balancer{producer: p, queues: queues}, nil
}

// Forward sends the payload unmodified to the next queue in the cycle and
// returns the chosen queue. A failed write surfaces to the caller, which owns
// the retry; a retried message takes a fresh counter tick and may land on a
// different queue, and in rare cases be double-counted, which is the accepted
// at-least-once tradeoff.
func (b *Balancer) Forward(ctx context.Context, payload []byte) (string, error) {
	x := b.counter.Add(1)
	queue := b.queues[int((x-1)%uint64(len(b.queues)))]

	if err := b.producer.Publish(ctx, queue, nil, payload); err != nil {
		return "", fmt.Errorf("forward to %s: %w", queue, err)
	}

	metrics.DispatchedTotal.WithLabelValues(queue).Inc()
	return queue, nil
}

// Queues returns the fan-out targets in cycle order.
func (b *Balancer) Queues() []string { return b.queues }
