package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBOptions 描述数据库连接参数。Driver 取值 mysql / postgres / sqlite。
type DBOptions struct {
	Driver   string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	Path     string // 仅 sqlite 使用
	Debug    bool
}

// dialector 根据驱动构建 GORM Dialector
func dialector(opts DBOptions) (gorm.Dialector, error) {
	switch opts.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			opts.User, opts.Password, opts.Host, opts.Port, opts.Name)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			opts.Host, opts.Port, opts.User, opts.Password, opts.Name)
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), nil
	case "sqlite":
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite driver requires a database path")
		}
		return sqlite.Open(opts.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

// InitDB 初始化数据库连接并配置连接池
func InitDB(opts DBOptions) (*gorm.DB, error) {
	d, err := dialector(opts)
	if err != nil {
		return nil, err
	}
	logLevel := logger.Warn
	if opts.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(d, &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if opts.Driver == "sqlite" {
		// sqlite 单写者，避免 "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	logrus.WithField("driver", opts.Driver).Info("Database connected")
	return db, nil
}

// InitRedis 初始化 Redis 连接并检查连通性
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logrus.WithField("addr", addr).Info("Redis connected")
	return client, nil
}
