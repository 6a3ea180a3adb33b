package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"gallery-backend/internal/shared"
)

// Enqueuer is the part of *asynq.Client the services use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueReleasePayload schedules deletion of payloads whose rows were removed.
func EnqueueReleasePayload(ctx context.Context, q Enqueuer, keys []string, reason string, maxRetry int) error {
	if len(keys) == 0 {
		return nil
	}

	payload, err := json.Marshal(shared.ReleasePayloadPayload{Keys: keys, Reason: reason})
	if err != nil {
		return fmt.Errorf("marshal release payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeReleasePayload, payload)
	_, err = q.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueStorage),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", shared.TypeReleasePayload, err)
	}
	return nil
}

// EnqueueSweepOrphans schedules a one-off orphan sweep outside the cron.
func EnqueueSweepOrphans(ctx context.Context, q Enqueuer, grace time.Duration) (string, error) {
	payload, err := json.Marshal(shared.SweepOrphansPayload{
		Prefix:       shared.ObjectKeyPrefix,
		GraceSeconds: int64(grace / time.Second),
	})
	if err != nil {
		return "", fmt.Errorf("marshal sweep payload: %w", err)
	}

	info, err := q.EnqueueContext(ctx, asynq.NewTask(shared.TypeSweepOrphans, payload),
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(15*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", shared.TypeSweepOrphans, err)
	}
	if info == nil {
		return "", nil
	}
	return info.ID, nil
}
