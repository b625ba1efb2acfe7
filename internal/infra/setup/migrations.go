package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
)

// MigrateDB 使用 GORM AutoMigrate 创建或更新全部表结构。
// 返回错误以便调用者知道迁移是否成功。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	models := []interface{}{
		&domain.User{},
		&domain.CodingRoom{},
		&domain.Participant{},
		&domain.KickEntry{},
		&domain.RoomMessage{},
		&domain.ChatRoom{},
		&domain.Message{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			logrus.Errorf("Failed to auto-migrate %T: %v", m, err)
			return fmt.Errorf("failed to auto-migrate %T: %w", m, err)
		}
	}
	logrus.Info("Database migration completed successfully")
	return nil
}
