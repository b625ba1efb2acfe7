package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/tasks"
)

// Sweeper 把缓冲中的脏内容写回存储，由 service.AutosaveService 实现
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// AutosaveHandler 处理周期性的自动保存任务
type AutosaveHandler struct {
	sweeper Sweeper
}

// NewAutosaveHandler 创建 Handler 实例
func NewAutosaveHandler(sweeper Sweeper) *AutosaveHandler {
	if sweeper == nil {
		panic("Sweeper cannot be nil for AutosaveHandler")
	}
	return &AutosaveHandler{sweeper: sweeper}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *AutosaveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
	})

	var payload tasks.CodeAutosavePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logCtx.WithError(err).Error("Failed to unmarshal task payload")
			return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	startedAt := time.Now()
	saved, err := h.sweeper.Sweep(ctx)
	logCtx = logCtx.WithFields(logrus.Fields{
		"started_at":  startedAt,
		"duration_ms": time.Since(startedAt).Milliseconds(),
		"interval":    payload.Interval,
	})
	if err != nil {
		logCtx.WithError(err).WithField("saved", saved).Warn("Autosave sweep interrupted")
		return fmt.Errorf("autosave sweep interrupted: %w", err)
	}
	if saved > 0 {
		logCtx.WithField("saved", saved).Debug("Autosave task processed")
	}
	return nil
}
