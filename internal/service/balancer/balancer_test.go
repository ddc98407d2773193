package balancer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingProducer struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn string // topic that fails, "" = never
}

type sentMessage struct {
	topic string
	value string
}

func (p *capturingProducer) Publish(_ context.Context, topic string, _, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn == topic {
		return errors.New("broker down")
	}
	p.sent = append(p.sent, sentMessage{topic: topic, value: string(value)})
	return nil
}

func TestBalancer_RequiresQueues(t *testing.T) {
	_, err := New(&capturingProducer{}, nil)
	assert.ErrorIs(t, err, ErrNoQueues)
}

func TestBalancer_RoundRobinFairness(t *testing.T) {
	queues := []string{"q0", "q1", "q2"}
	prod := &capturingProducer{}
	bal, err := New(prod, queues)
	require.NoError(t, err)

	const rounds = 5
	for i := 0; i < rounds*len(queues); i++ {
		_, err := bal.Forward(context.Background(), []byte{byte(i)})
		require.NoError(t, err)
	}

	// Each queue gets exactly `rounds` messages, in the same cyclic order as
	// the input.
	counts := map[string]int{}
	for i, s := range prod.sent {
		counts[s.topic]++
		assert.Equal(t, queues[i%len(queues)], s.topic)
	}
	for _, q := range queues {
		assert.Equal(t, rounds, counts[q], "queue %s", q)
	}
}

func TestBalancer_PayloadUnmodified(t *testing.T) {
	prod := &capturingProducer{}
	bal, err := New(prod, []string{"q0"})
	require.NoError(t, err)

	payload := []byte(`{"deviceId":"x","measurementValue":1.5,"timestamp":"2026-01-15T09:30:00.000Z"}`)
	queue, err := bal.Forward(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "q0", queue)
	assert.Equal(t, string(payload), prod.sent[0].value)
}

func TestBalancer_CounterWrapDoesNotSkip(t *testing.T) {
	prod := &capturingProducer{}
	bal, err := New(prod, []string{"q0", "q1", "q2", "q3"})
	require.NoError(t, err)

	// Park the counter just below overflow; the cycle must continue without
	// a crash or a skipped queue across the wrap.
	bal.counter.Store(^uint64(0) - 1)

	for i := 0; i < 8; i++ {
		_, err := bal.Forward(context.Background(), []byte("m"))
		require.NoError(t, err)
	}

	counts := map[string]int{}
	for _, s := range prod.sent {
		counts[s.topic]++
	}
	for _, q := range []string{"q0", "q1", "q2", "q3"} {
		assert.Equal(t, 2, counts[q], "queue %s", q)
	}
}

func TestBalancer_ForwardFailureSurfaces(t *testing.T) {
	prod := &capturingProducer{failOn: "q1"}
	bal, err := New(prod, []string{"q0", "q1"})
	require.NoError(t, err)

	_, err = bal.Forward(context.Background(), []byte("a"))
	require.NoError(t, err)

	// Second dispatch targets q1 and must surface the failure (no retry,
	// no silent drop): the caller owns retrying the inbound message.
	_, err = bal.Forward(context.Background(), []byte("b"))
	assert.Error(t, err)
}

func TestBalancer_ConcurrentDispatchStaysFair(t *testing.T) {
	queues := []string{"q0", "q1", "q2", "q3"}
	prod := &capturingProducer{}
	bal, err := New(prod, queues)
	require.NoError(t, err)

	const perWorker = 100
	var wg sync.WaitGroup
	for w := 0; w < len(queues); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, _ = bal.Forward(context.Background(), []byte("m"))
			}
		}()
	}
	wg.Wait()

	counts := map[string]int{}
	for _, s := range prod.sent {
		counts[s.topic]++
	}
	for _, q := range queues {
		assert.Equal(t, perWorker, counts[q], "queue %s", q)
	}
}
