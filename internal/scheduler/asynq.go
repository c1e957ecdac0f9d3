package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultQueue is the asynq queue lifecycle jobs run on.
const DefaultQueue = "campaigns"

// AsynqScheduler registers deferred lifecycle jobs on asynq. The job key
// doubles as the asynq task ID, which makes re-registration replace the
// pending task instead of duplicating it.
type AsynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

// NewAsynqScheduler builds an asynq-backed scheduler against the given
// redis connection.
func NewAsynqScheduler(redisOpt asynq.RedisClientOpt, queue string) *AsynqScheduler {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AsynqScheduler{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		queue:     queue,
	}
}

// ScheduleOnce enqueues task to run at the given time under key,
// replacing any pending task with the same key.
func (s *AsynqScheduler) ScheduleOnce(ctx context.Context, key string, at time.Time, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal lifecycle task: %w", err)
	}

	opts := []asynq.Option{
		asynq.TaskID(key),
		asynq.ProcessAt(at),
		asynq.Queue(s.queue),
		asynq.MaxRetry(3),
	}

	_, err = s.client.EnqueueContext(ctx, asynq.NewTask(task.Type, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// A stale task under the same key survived a cancel; replace it.
		if err := s.Cancel(ctx, key); err != nil {
			return err
		}
		_, err = s.client.EnqueueContext(ctx, asynq.NewTask(task.Type, payload), opts...)
	}
	if err != nil {
		return fmt.Errorf("enqueue lifecycle task %s: %w", key, err)
	}
	return nil
}

// Cancel removes the pending task registered under key. Unknown keys and
// queues are not errors.
func (s *AsynqScheduler) Cancel(_ context.Context, key string) error {
	err := s.inspector.DeleteTask(s.queue, key)
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		return fmt.Errorf("delete lifecycle task %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client connections.
func (s *AsynqScheduler) Close() error {
	if err := s.client.Close(); err != nil {
		return err
	}
	return s.inspector.Close()
}

// NewServeMux wires the lifecycle transitions into an asynq worker mux.
func NewServeMux(lc *Lifecycle) *asynq.ServeMux {
	handle := func(ctx context.Context, t *asynq.Task) error {
		var task Task
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("unmarshal lifecycle task payload: %w", err)
		}
		return lc.Handle(ctx, task)
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeActivate, handle)
	mux.HandleFunc(TaskTypeExpire, handle)
	return mux
}
