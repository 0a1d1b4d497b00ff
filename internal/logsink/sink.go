// Package logsink decouples log appends from request handling. Appends are
// fire-and-forget: a bounded queue absorbs bursts, a single writer goroutine
// drains it, and overflow drops the oldest entry rather than blocking a login.
package logsink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moon4656/skyboot-core/pkg/logger"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Sink queues values of T and writes them through the supplied store
// function on a background goroutine.
type Sink[T any] struct {
	name    string
	ch      chan T
	stop    chan struct{}
	write   func(context.Context, T) error
	log     *logger.Logger
	wg      sync.WaitGroup
	dropped atomic.Uint64
	once    sync.Once
}

// New creates a Sink with the given queue size and starts its writer
func New[T any](name string, size int, write func(context.Context, T) error, log *logger.Logger) *Sink[T] {
	if size <= 0 {
		size = 1024
	}
	s := &Sink[T]{
		name:  name,
		ch:    make(chan T, size),
		stop:  make(chan struct{}),
		write: write,
		log:   log,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Append enqueues v without blocking. On a full queue the oldest entry is
// dropped; an orphaned record beats a stalled request.
func (s *Sink[T]) Append(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
			s.log.Warn("log sink queue full, dropped oldest entry", zap.String("sink", s.name))
		default:
		}
	}
}

// Dropped returns how many entries were discarded due to overflow
func (s *Sink[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops the writer after draining the queue, or returns early when
// ctx expires.
func (s *Sink[T]) Close(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink[T]) run() {
	defer s.wg.Done()
	for {
		select {
		case v := <-s.ch:
			s.writeOne(v)
		case <-s.stop:
			for {
				select {
				case v := <-s.ch:
					s.writeOne(v)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink[T]) writeOne(v T) {
	// Background context: a cancelled request must not lose its record.
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.write(ctx, v); err != nil {
		s.log.Error("log sink write failed", zap.String("sink", s.name), zap.Error(err))
	}
}
