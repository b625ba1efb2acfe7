package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// 定义任务类型常量
const (
	TypeCodeAutosave = "code:autosave" // 周期性把编辑器缓冲写回存储
)

// CodeAutosavePayload 是自动保存任务的数据。Sweep 本身不需要参数，只记录调度周期。
// 内容保持不变，asynq 按 队列+类型+载荷 判断唯一性。
type CodeAutosavePayload struct {
	Interval string `json:"interval"`
}

// CodeAutosaveOptions 返回自动保存任务的选项。
// 错过的一轮会在下一个周期补上，所以不重试；同一周期内只允许排队一个任务。
func CodeAutosaveOptions(interval time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(interval),
		asynq.Unique(interval),
	}
}

// NewCodeAutosaveTask 创建自动保存任务
func NewCodeAutosaveTask(interval time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(CodeAutosavePayload{Interval: interval.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCodeAutosave, payload, CodeAutosaveOptions(interval)...), nil
}
