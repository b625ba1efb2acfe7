package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑。
// 编辑器缓冲只存在于本进程内存中，所以自动保存任务必须由同一进程消费。
type WorkerServer struct {
	server  *asynq.Server
	log     *logrus.Entry
	sweeper Sweeper
}

// NewWorkerServer 创建一个新的 WorkerServer 实例
func NewWorkerServer(redisOpt asynq.RedisClientOpt, sweeper Sweeper, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// 同一时间只跑一轮 Sweep，Sweep 内部自己做并发
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
				}).Errorf("Task failed: %v", err)
			}),
			Logger:   logEntry,
			LogLevel: asynq.WarnLevel,
		},
	)

	return &WorkerServer{server: server, log: logEntry, sweeper: sweeper}
}

// Mux 返回注册了全部任务处理器的路由
func (ws *WorkerServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeCodeAutosave, NewAutosaveHandler(ws.sweeper))
	return mux
}

// Start 启动 Worker Server，不阻塞
func (ws *WorkerServer) Start() error {
	ws.log.Info("Worker server starting...")
	return ws.server.Start(ws.Mux())
}

// Shutdown 优雅地关闭 Worker Server，等待正在处理的任务完成
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
