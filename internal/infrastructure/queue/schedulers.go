package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"gallery-backend/internal/config"
	"gallery-backend/internal/shared"
	"gallery-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	cfg       config.WorkerConfig
}

func NewScheduler(redis asynq.RedisConnOpt, cfg config.WorkerConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redis,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		cfg:       cfg,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerSweepOrphansJob()
}

// ================================================
// Orphan payload sweep
// ================================================
// Catches objects left behind when a process died between
// the object write and the row insert.
func (s *Scheduler) registerSweepOrphansJob() error {
	payload, err := json.Marshal(shared.SweepOrphansPayload{
		Prefix:       shared.ObjectKeyPrefix,
		GraceSeconds: int64(s.cfg.OrphanGracePeriod / time.Second),
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeSweepOrphans, payload)

	_, err = s.scheduler.Register(
		s.cfg.OrphanSweepCron,
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(15*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register SweepOrphans job", err)
		return err
	}

	logger.Info("Registered SweepOrphans", map[string]interface{}{"cron": s.cfg.OrphanSweepCron})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
