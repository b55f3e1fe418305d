package artifact

import (
	"context"
	"errors"
	"sync"

	"flight-booking/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQueueFull  = errors.New("artifact queue is full")
	ErrPoolClosed = errors.New("artifact pool is closed")
)

type Job struct {
	BookingID uuid.UUID
	Attempt   int
}

type Handler func(ctx context.Context, job Job)

// WorkerPool runs jobs off the request path. Jobs get a context that is not
// tied to any request, so a client hanging up never aborts a generation.
type WorkerPool struct {
	jobs    chan Job
	handler Handler
	workers int
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorkerPool(workers, queueSize int, handler Handler, log *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:    make(chan Job, queueSize),
		handler: handler,
		workers: workers,
		log:     log.With(zap.String("component", "artifact_pool")),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.log.Info("Artifact workers started", zap.Int("workers", p.workers))
}

func (p *WorkerPool) run(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		metrics.SetArtifactQueueDepth(len(p.jobs))
		p.handle(id, job)
	}
}

func (p *WorkerPool) handle(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Artifact job panicked",
				zap.Any("panic", r),
				zap.Int("worker", id),
				zap.String("booking_id", job.BookingID.String()),
				zap.Int("attempt", job.Attempt),
			)
		}
	}()
	p.handler(p.ctx, job)
}

// Enqueue never blocks. A full queue is reported to the caller.
func (p *WorkerPool) Enqueue(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		metrics.SetArtifactQueueDepth(len(p.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops intake and waits for queued jobs until ctx expires, then
// cancels the jobs still running.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
