package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/AbhishekNavgan95/Devnest-Backend/internal/handler/http"
	wsHandler "github.com/AbhishekNavgan95/Devnest-Backend/internal/handler/websocket"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/hub"
	gormpersistence "github.com/AbhishekNavgan95/Devnest-Backend/internal/infra/persistence/gorm"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/infra/setup"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/middleware"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/presence"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/worker"
)

// 关闭时最后一次自动保存的超时
const finalFlushTimeout = 10 * time.Second

// App 结构体包含应用的所有组件和配置
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Hub         *hub.Hub
	Autosave    *service.AutosaveService
	Worker      *worker.WorkerServer
	Scheduler   *worker.Scheduler
	HttpServer  *http.Server

	hubCancel context.CancelFunc
	hubDone   chan struct{}
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		// logrus 还未配置，直接写 stderr
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger。各组件使用包级别的 logrus，所以直接配置标准 logger
	log := logrus.StandardLogger()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel) // cfg.LogLevel 已被 LoadConfig 验证
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Infof("Logger initialized (Level: %s, Format: %T)", logLevel.String(), log.Formatter)

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// 4. 初始化 Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormCodingRoomRepository(db)
	chatRepo := gormpersistence.NewGormChatRepository(db)

	// 5. 初始化 Hub 和 Services
	hubInstance := hub.NewHub()
	cache := presence.NewCache()

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	collabService := service.NewCollaborationService(roomRepo, userRepo, cache, hubInstance, cfg.CodeEditPolicy)
	roomService := service.NewRoomService(roomRepo, userRepo, collabService)
	chatService := service.NewChatService(chatRepo, userRepo, hubInstance)
	autosaveService := service.NewAutosaveService(roomRepo, cache, cfg.AutosaveConcurrency)
	log.WithField("code_edit_policy", cfg.CodeEditPolicy).Info("Services initialized")

	// 6. 初始化 Worker 和 Scheduler
	workerServer := worker.NewWorkerServer(redisClientOpt, autosaveService, log)
	scheduler, err := worker.NewScheduler(redisClientOpt, cfg.AutosaveInterval, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	// 7. 初始化 Handlers 和路由
	handlers := httpHandler.Handlers{
		Auth: httpHandler.NewAuthHandler(authService),
		Room: httpHandler.NewRoomHandler(roomService),
		Chat: httpHandler.NewChatHandler(chatService),
	}
	events := wsHandler.NewEventRouter(collabService, chatService)
	ws := wsHandler.NewWebSocketHandler(hubInstance, events, cfg.CORSAllowedOrigin)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.CORSAllowedOrigin))
	router.Use(middleware.RateLimit(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))

	httpHandler.RegisterRoutes(router.Group("/api"), handlers, cfg.JWTSecret)
	router.GET("/ws", middleware.Auth(cfg.JWTSecret), ws.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app := &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		Hub:         hubInstance,
		Autosave:    autosaveService,
		Worker:      workerServer,
		Scheduler:   scheduler,
		HttpServer:  httpServer,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() error {
	hubCtx, cancel := context.WithCancel(context.Background())
	a.hubCancel = cancel
	a.hubDone = make(chan struct{})
	go func() {
		defer close(a.hubDone)
		a.Hub.Run(hubCtx)
	}()

	if err := a.Worker.Start(); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.Log.WithField("interval", a.Config.AutosaveInterval).Info("Autosave scheduled")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
	return nil
}

// Shutdown 优雅地关闭应用。
// 先停止接收新请求和新连接，再停掉定时任务，最后把缓冲中的编辑内容全部落库。
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. HTTP 服务器
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	// 2. Hub 停止后所有 WebSocket 连接随之关闭
	if a.hubCancel != nil {
		a.hubCancel()
		<-a.hubDone
	}

	// 3. 调度器和 Worker
	if a.Scheduler != nil {
		a.Scheduler.Shutdown()
	}
	if a.Worker != nil {
		a.Worker.Shutdown()
	}

	// 4. 最后一次自动保存
	flushCtx, flushCancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer flushCancel()
	if saved, err := a.Autosave.Sweep(flushCtx); err != nil {
		a.Log.WithError(err).WithField("saved", saved).Error("Final autosave flush incomplete")
	} else {
		a.Log.WithField("saved", saved).Info("Final autosave flush complete")
	}

	// 5. 关闭 Redis 和数据库连接
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// CORSMiddleware 只允许配置的前端来源
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		// 只记录路径，token 查询参数不能进日志
		path := c.Request.URL.Path
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
