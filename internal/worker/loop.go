package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jmehdipour/energymon/internal/kafka"
)

// HandlerFunc processes one delivered message. A nil return commits the
// offset. An error keeps the processor on the same message, retrying with
// backoff: Kafka group offsets are high-water marks, so moving on and
// committing any later offset would mark the failed one consumed and the
// event would be lost. Malformed messages a handler wants dropped are logged
// and nil is returned.
type HandlerFunc func(ctx context.Context, m kafka.Message) error

// consumer is the slice of kafka.Consumer the loop needs.
type consumer interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

const maxRetryBackoff = 30 * time.Second

// Loop drives one consumer: a fetcher goroutine feeds a buffered channel,
// Workers processor goroutines drain it. Workers=1 preserves partition order,
// which the sync consumers rely on for per-entity apply order.
type Loop struct {
	Name     string
	Consumer consumer
	Handler  HandlerFunc
	Workers  int

	// RetryBackoff is the initial delay before reprocessing a failed
	// message; it doubles per attempt up to 30s. Defaults to 200ms.
	RetryBackoff time.Duration
}

// Run starts the loop and blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.Consumer == nil || l.Handler == nil {
		return errors.New("worker loop: missing consumer or handler")
	}
	if l.Workers <= 0 {
		l.Workers = 1
	}
	if l.RetryBackoff <= 0 {
		l.RetryBackoff = 200 * time.Millisecond
	}

	msgCh := make(chan kafka.Message, l.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := l.Consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[%s] kafka fetch err: %v", l.Name, err)
				time.Sleep(200 * time.Millisecond)
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < l.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.runProcessor(ctx, msgCh)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (l *Loop) runProcessor(ctx context.Context, in <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			l.processOne(ctx, m)
		}
	}
}

// processOne applies the handler and commits on success. A failing handler
// parks this processor on the message until it goes through or the loop shuts
// down; an uncommitted failure must never be skipped past, a commit of any
// later offset would consume it.
func (l *Loop) processOne(ctx context.Context, m kafka.Message) {
	backoff := l.RetryBackoff
	for {
		err := l.Handler(ctx, m)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("[%s] handler err on offset %d, retrying in %s: %v", l.Name, m.Offset, backoff, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxRetryBackoff {
			backoff *= 2
			if backoff > maxRetryBackoff {
				backoff = maxRetryBackoff
			}
		}
	}
	if err := l.Consumer.Commit(ctx, m); err != nil {
		log.Printf("[%s] commit err: %v", l.Name, err)
	}
}
