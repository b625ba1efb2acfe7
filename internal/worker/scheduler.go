package worker

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/tasks"
)

// Scheduler 周期性地投递自动保存任务
type Scheduler struct {
	scheduler *asynq.Scheduler
	interval  time.Duration
	log       *logrus.Entry
}

// NewScheduler 创建调度器并注册自动保存任务
func NewScheduler(redisOpt asynq.RedisClientOpt, interval time.Duration, logger *logrus.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("autosave interval must be positive, got %s", interval)
	}
	logEntry := logger.WithField("component", "scheduler")
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger:   logEntry,
		LogLevel: asynq.WarnLevel,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logEntry.WithError(err).Warn("Failed to enqueue periodic task")
			}
		},
	})

	task, err := tasks.NewCodeAutosaveTask(interval)
	if err != nil {
		return nil, fmt.Errorf("failed to create autosave task: %w", err)
	}
	schedule := "@every " + interval.String()
	entryID, err := scheduler.Register(schedule, task, asynq.Queue("default"))
	if err != nil {
		return nil, fmt.Errorf("could not register autosave task: %w", err)
	}
	logEntry.Infof("Periodic autosave task registered with schedule '%s' (EntryID: %s)", schedule, entryID)

	return &Scheduler{scheduler: scheduler, interval: interval, log: logEntry}, nil
}

// Start 启动调度器，不阻塞
func (s *Scheduler) Start() error {
	s.log.Info("Asynq scheduler starting...")
	return s.scheduler.Start()
}

// Shutdown 停止调度器
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
	s.log.Info("Asynq scheduler stopped.")
}
