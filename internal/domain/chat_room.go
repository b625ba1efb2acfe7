package domain

import "time"

// ChatRoom 是全局聊天室，没有成员和角色的概念。
type ChatRoom struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	Name      string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"name"`
	Icon      string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"icon"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Message 是全局聊天室中的一条消息。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	RoomID    uint      `gorm:"index;not null" json:"roomId"`
	SenderID  uint      `gorm:"index;not null" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}
