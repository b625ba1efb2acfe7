package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/infra/setup"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

// Config 结构体用于存储从环境变量或文件加载的配置
type Config struct {
	DB                  setup.DBOptions
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	JWTSecret           string
	JWTExpiryHours      int
	ServerPort          string
	LogLevel            string
	AppEnv              string // development / production
	KeyPrefix           string // Redis Key 前缀
	RateLimitMax        int
	RateLimitWindow     time.Duration
	AutosaveInterval    time.Duration
	AutosaveConcurrency int
	CodeEditPolicy      service.CodeEditPolicy
	CORSAllowedOrigin   string
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		DB: setup.DBOptions{
			Driver:   os.Getenv("DB_DRIVER"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			Name:     os.Getenv("DB_NAME"),
			Path:     os.Getenv("DB_PATH"),
		},
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ServerPort:        os.Getenv("SERVER_PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		AppEnv:            os.Getenv("APP_ENV"),
		KeyPrefix:         os.Getenv("REDIS_KEY_PREFIX"),
		CodeEditPolicy:    service.ParseCodeEditPolicy(os.Getenv("CODE_EDIT_POLICY")),
		CORSAllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
		// --- 设置默认值 ---
		RateLimitMax:        100,
		RateLimitWindow:     1 * time.Second,
		JWTExpiryHours:      24,
		AutosaveInterval:    15 * time.Second,
		AutosaveConcurrency: 8,
	}

	// 数字配置解析失败时保留默认值
	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	if v, err := strconv.Atoi(os.Getenv("JWT_EXPIRY_HOURS")); err == nil && v > 0 {
		cfg.JWTExpiryHours = v
	}
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_MAX")); err == nil && v > 0 {
		cfg.RateLimitMax = v
	}
	if v := os.Getenv("AUTOSAVE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid AUTOSAVE_INTERVAL %q: must be a positive duration such as 15s", v)
		}
		cfg.AutosaveInterval = d
	}

	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "mysql"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "devnest:"
	}
	if cfg.CORSAllowedOrigin == "" {
		cfg.CORSAllowedOrigin = "http://localhost:3000"
	}
	cfg.DB.Debug = cfg.AppEnv != "production"

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.DB.Driver == "sqlite" && cfg.DB.Path == "" {
		return nil, fmt.Errorf("environment variable DB_PATH must be set when DB_DRIVER=sqlite")
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
