// Package domain 定义了平台的核心领域模型。
package domain

import "time"

// AccountType 表示用户的账户类型，由身份认证服务写入 JWT。
type AccountType string

const (
	AccountStudent    AccountType = "Student"
	AccountInstructor AccountType = "Instructor"
	AccountAdmin      AccountType = "Admin"
)

// Valid 判断账户类型是否为已知取值。
func (t AccountType) Valid() bool {
	switch t {
	case AccountStudent, AccountInstructor, AccountAdmin:
		return true
	}
	return false
}

// User 表示平台中的用户。
type User struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	FirstName   string      `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName    string      `gorm:"type:varchar(100)" json:"lastName"`
	Email       string      `gorm:"type:varchar(191);uniqueIndex:idx_email;not null" json:"email"`
	Password    string      `gorm:"type:text;not null" json:"-"` // 存储的是 bcrypt 哈希
	AccountType AccountType `gorm:"type:varchar(20);not null;default:Student" json:"accountType"`
	Image       string      `gorm:"type:varchar(512)" json:"image"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

// UserSummary 是广播给房间成员的用户展示信息，不包含任何敏感字段。
type UserSummary struct {
	ID        uint   `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Image     string `json:"image"`
}

// Summary 提取用户的展示字段。
func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Image:     u.Image,
	}
}
