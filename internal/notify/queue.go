// Package notify runs push notification jobs outside the request that produced them.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mbeoliero/haven/internal/metrics"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/kit/log"
)

// ErrQueueFull is returned when the local queue cannot take another job
var ErrQueueFull = errors.New("notification queue full")

// ErrQueueClosed is returned after Stop
var ErrQueueClosed = errors.New("notification queue closed")

// Handler executes one job. It owns all error handling.
type Handler func(ctx context.Context, job *service.NewMessageJob)

// runJob gives each job its own deadline and panic boundary
func runJob(handler Handler, job *service.NewMessageJob, timeout time.Duration) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationJobs.WithLabelValues("panic").Inc()
			log.Warn("notification job panicked: message_id=%s, panic=%v", job.MessageId, r)
		}
	}()

	handler(ctx, job)
}

// LocalQueue is a bounded in-process queue drained by a fixed worker pool
type LocalQueue struct {
	jobs      chan *service.NewMessageJob
	handler   Handler
	workerNum int
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ service.NotificationQueue = (*LocalQueue)(nil)

// NewLocalQueue creates a new LocalQueue
func NewLocalQueue(size, workerNum int, timeout time.Duration, handler Handler) *LocalQueue {
	if size <= 0 {
		size = 1024
	}
	if workerNum <= 0 {
		workerNum = 4
	}
	return &LocalQueue{
		jobs:      make(chan *service.NewMessageJob, size),
		handler:   handler,
		workerNum: workerNum,
		timeout:   timeout,
	}
}

// Start launches the workers
func (q *LocalQueue) Start() {
	for i := 0; i < q.workerNum; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	log.Info("started %d notification workers", q.workerNum)
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		runJob(q.handler, job, q.timeout)
	}
}

// Enqueue hands job to the pool without blocking; a full queue drops the job
func (q *LocalQueue) Enqueue(ctx context.Context, job *service.NewMessageJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		metrics.NotificationJobs.WithLabelValues("queued").Inc()
		return nil
	default:
		metrics.NotificationJobs.WithLabelValues("dropped").Inc()
		log.CtxWarn(ctx, "notification queue full, job dropped: message_id=%s", job.MessageId)
		return ErrQueueFull
	}
}

// Stop refuses new jobs and waits for queued ones until ctx expires
func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
