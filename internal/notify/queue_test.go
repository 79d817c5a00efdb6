package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/mbeoliero/haven/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalQueue_RunsJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewLocalQueue(16, 2, time.Second, func(ctx context.Context, job *service.NewMessageJob) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		mu.Lock()
		seen = append(seen, job.MessageId)
		mu.Unlock()
	})
	q.Start()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), &service.NewMessageJob{MessageId: id}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))

	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	assert.ErrorIs(t, q.Enqueue(context.Background(), &service.NewMessageJob{}), ErrQueueClosed)
}

func TestLocalQueue_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewLocalQueue(1, 1, 0, func(context.Context, *service.NewMessageJob) {
		<-release
	})
	q.Start()

	require.NoError(t, q.Enqueue(context.Background(), &service.NewMessageJob{MessageId: "busy"}))
	// wait until the worker holds the first job so the buffer is empty again
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), &service.NewMessageJob{MessageId: "buffered"}))

	err := q.Enqueue(context.Background(), &service.NewMessageJob{MessageId: "dropped"})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	require.NoError(t, q.Stop(context.Background()))
}

func TestLocalQueue_SurvivesPanics(t *testing.T) {
	var mu sync.Mutex
	count := 0
	q := NewLocalQueue(4, 1, 0, func(_ context.Context, job *service.NewMessageJob) {
		if job.MessageId == "boom" {
			panic("push provider exploded")
		}
		mu.Lock()
		count++
		mu.Unlock()
	})
	q.Start()

	require.NoError(t, q.Enqueue(context.Background(), &service.NewMessageJob{MessageId: "boom"}))
	require.NoError(t, q.Enqueue(context.Background(), &service.NewMessageJob{MessageId: "ok"}))
	require.NoError(t, q.Stop(context.Background()))

	assert.Equal(t, 1, count)
}

func TestNewMessageTask(t *testing.T) {
	job := &service.NewMessageJob{ConversationId: "c", MessageId: "m", SenderRole: "homeless", Text: "hi"}
	task, err := NewMessageTask(job)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeNewMessage, task.Type())

	var decoded service.NewMessageJob
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, *job, decoded)
}
