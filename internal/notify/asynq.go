package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mbeoliero/haven/internal/metrics"
	"github.com/mbeoliero/haven/internal/service"
	"github.com/mbeoliero/kit/log"
)

// TaskTypeNewMessage is the asynq task type of a notification job
const TaskTypeNewMessage = "chat:new_message"

// NewMessageTask encodes job as an asynq task
func NewMessageTask(job *service.NewMessageJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification job: %w", err)
	}
	return asynq.NewTask(TaskTypeNewMessage, payload), nil
}

// taskEnqueuer is the part of *asynq.Client the queue uses
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// AsynqQueue enqueues notification jobs into Redis through asynq.
// Enqueue only hands the job to a bounded buffer; a single forwarder
// goroutine does the Redis round trip. Jobs are never retried.
type AsynqQueue struct {
	client  taskEnqueuer
	queue   string
	timeout time.Duration
	pending chan *service.NewMessageJob
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ service.NotificationQueue = (*AsynqQueue)(nil)

// NewAsynqQueue creates a new AsynqQueue and starts its forwarder
func NewAsynqQueue(opt asynq.RedisConnOpt, queue string, size int, timeout time.Duration) *AsynqQueue {
	return newAsynqQueue(asynq.NewClient(opt), queue, size, timeout)
}

func newAsynqQueue(client taskEnqueuer, queue string, size int, timeout time.Duration) *AsynqQueue {
	if queue == "" {
		queue = "default"
	}
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	q := &AsynqQueue{
		client:  client,
		queue:   queue,
		timeout: timeout,
		pending: make(chan *service.NewMessageJob, size),
		done:    make(chan struct{}),
	}
	go q.forward()
	return q
}

// Enqueue hands job to the forwarder without blocking; a full buffer drops the job
func (q *AsynqQueue) Enqueue(ctx context.Context, job *service.NewMessageJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.pending <- job:
		return nil
	default:
		metrics.NotificationJobs.WithLabelValues("dropped").Inc()
		log.CtxWarn(ctx, "asynq handoff full, job dropped: message_id=%s", job.MessageId)
		return ErrQueueFull
	}
}

func (q *AsynqQueue) forward() {
	defer close(q.done)
	for job := range q.pending {
		q.store(job)
	}
}

// store writes one job to Redis under its own deadline
func (q *AsynqQueue) store(job *service.NewMessageJob) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	task, err := NewMessageTask(job)
	if err != nil {
		metrics.NotificationJobs.WithLabelValues("dropped").Inc()
		log.CtxWarn(ctx, "notification job not encodable: message_id=%s, error=%v", job.MessageId, err)
		return
	}
	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(q.queue), asynq.MaxRetry(0))
	if err != nil {
		metrics.NotificationJobs.WithLabelValues("dropped").Inc()
		log.CtxWarn(ctx, "failed to enqueue notification job: message_id=%s, error=%v", job.MessageId, err)
		return
	}
	metrics.NotificationJobs.WithLabelValues("queued").Inc()
	log.CtxDebug(ctx, "notification job enqueued: task_id=%s, message_id=%s", info.ID, job.MessageId)
}

// Close refuses new jobs, flushes buffered ones until ctx expires and closes the client
func (q *AsynqQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.pending)
	}
	q.mu.Unlock()

	var err error
	select {
	case <-q.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if cerr := q.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// AsynqWorker executes notification jobs pulled from Redis
type AsynqWorker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	timeout time.Duration
}

// NewAsynqWorker creates a new AsynqWorker consuming queue
func NewAsynqWorker(opt asynq.RedisConnOpt, queue string, concurrency int, timeout time.Duration, handler Handler) *AsynqWorker {
	if queue == "" {
		queue = "default"
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      asynqLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.CtxWarn(ctx, "asynq task failed: type=%s, error=%v", task.Type(), err)
		}),
	})

	w := &AsynqWorker{server: srv, mux: asynq.NewServeMux(), timeout: timeout}
	w.mux.HandleFunc(TaskTypeNewMessage, func(ctx context.Context, t *asynq.Task) error {
		var job service.NewMessageJob
		if err := json.Unmarshal(t.Payload(), &job); err != nil {
			// A malformed payload will never succeed; skip it.
			return fmt.Errorf("decode notification job: %v: %w", err, asynq.SkipRetry)
		}
		runJob(handler, &job, w.timeout)
		return nil
	})
	return w
}

// Start begins processing in the background
func (w *AsynqWorker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown waits for running jobs and stops the worker
func (w *AsynqWorker) Shutdown() {
	w.server.Shutdown()
}

// asynqLogger routes asynq's own logs into kit/log
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { log.Debug("asynq: %s", fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { log.Info("asynq: %s", fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { log.Warn("asynq: %s", fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { log.Warn("asynq error: %s", fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) {
	log.Warn("asynq fatal: %s", fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}
