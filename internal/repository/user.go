package repository

import (
	"context"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByEmail 根据邮箱查找用户，不存在时返回 ErrUserNotFound。
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID 根据用户 ID 查找用户，不存在时返回 ErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// FindByIDs 批量查询用户，用于解析参与者和消息发送者的展示信息。
	// 不存在的 ID 会被忽略。
	FindByIDs(ctx context.Context, ids []uint) ([]domain.User, error)

	// Save 创建或更新用户。唯一约束冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error
}
