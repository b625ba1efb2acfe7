package domain

import "time"

// Visibility 表示编程房间的可见性。
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParticipantRole 表示参与者在房间内的编辑权限。
// 空字符串表示“不是参与者”，仅在权限判断时使用。
type ParticipantRole string

const (
	RoleNone   ParticipantRole = ""
	RoleViewer ParticipantRole = "viewer"
	RoleEditor ParticipantRole = "editor"
)

// Valid 判断角色是否可以写入参与者记录。
func (r ParticipantRole) Valid() bool {
	return r == RoleViewer || r == RoleEditor
}

// 新建房间时的默认设置。
const (
	DefaultLanguage   = "javascript"
	DefaultEditorType = "simple"
)

// CodingRoom 表示一个由讲师拥有的协作编程房间。
type CodingRoom struct {
	ID           uint          `gorm:"primaryKey" json:"_id"`
	Name         string        `gorm:"type:varchar(191);not null" json:"name"`
	InstructorID uint          `gorm:"index;not null" json:"instructor"`
	Visibility   Visibility    `gorm:"type:varchar(16);not null;default:public" json:"visibility"`
	InviteToken  *string       `gorm:"type:varchar(64);uniqueIndex" json:"inviteLink,omitempty"` // 仅私有房间存在
	Language     string        `gorm:"type:varchar(50)" json:"language"`
	EditorType   string        `gorm:"type:varchar(50)" json:"editorType"`
	CodeContent  string        `gorm:"type:text" json:"codeContent"`
	Participants []Participant `gorm:"foreignKey:RoomID" json:"participants"`
	KickList     []KickEntry   `gorm:"foreignKey:RoomID" json:"kickList"`
	ChatMessages []RoomMessage `gorm:"foreignKey:RoomID" json:"chatMessages"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Participant 是房间中非讲师的成员。讲师本人永远不会出现在参与者列表中。
type Participant struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	RoomID     uint            `gorm:"index;not null" json:"-"`
	UserID     uint            `gorm:"index;not null" json:"user"`
	Role       ParticipantRole `gorm:"type:varchar(16);not null;default:viewer" json:"role"`
	MutedUntil *time.Time      `json:"mutedUntil"` // 预留字段，目前不参与权限判断
}

// KickEntry 是房间的封禁记录，只追加，不会自动过期。
type KickEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    uint      `gorm:"index;not null" json:"-"`
	UserID    uint      `gorm:"index;not null" json:"user"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

// RoomMessage 是房间内的聊天消息，按插入顺序排列，不可编辑或删除。
type RoomMessage struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	RoomID    uint      `gorm:"index;not null" json:"-"`
	SenderID  uint      `gorm:"index;not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// IsInstructor 判断用户是否为房间讲师。
func (r *CodingRoom) IsInstructor(userID uint) bool {
	return r != nil && userID != 0 && r.InstructorID == userID
}

// IsPrivate 判断房间是否为私有房间。
func (r *CodingRoom) IsPrivate() bool {
	return r.Visibility == VisibilityPrivate
}

// FindParticipant 返回参与者记录的下标，不存在时返回 -1。
func (r *CodingRoom) FindParticipant(userID uint) int {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return i
		}
	}
	return -1
}

// RoleOf 返回用户在房间中的角色，非参与者返回 RoleNone。
func (r *CodingRoom) RoleOf(userID uint) ParticipantRole {
	if i := r.FindParticipant(userID); i >= 0 {
		return r.Participants[i].Role
	}
	return RoleNone
}

// IsKicked 判断用户是否在封禁列表中。
func (r *CodingRoom) IsKicked(userID uint) bool {
	for _, k := range r.KickList {
		if k.UserID == userID {
			return true
		}
	}
	return false
}

// CheckInvite 校验私有房间的邀请令牌。公开房间和讲师本人总是通过。
func (r *CodingRoom) CheckInvite(userID uint, token string) bool {
	if !r.IsPrivate() || r.IsInstructor(userID) {
		return true
	}
	return r.InviteToken != nil && token != "" && *r.InviteToken == token
}

// DedupeParticipants 按首次出现的顺序合并重复的参与者记录，返回被移除的条数。
func (r *CodingRoom) DedupeParticipants() int {
	seen := make(map[uint]struct{}, len(r.Participants))
	kept := r.Participants[:0]
	for _, p := range r.Participants {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		kept = append(kept, p)
	}
	removed := len(r.Participants) - len(kept)
	r.Participants = kept
	return removed
}

// Sanitized 返回隐藏了邀请令牌的房间副本，用于对外展示。
func (r *CodingRoom) Sanitized() CodingRoom {
	c := *r
	c.InviteToken = nil
	return c
}
