// Package presence 维护房间的内存态：尚未落库的编辑器内容和参与者快照。
package presence

import (
	"sync"
	"time"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
)

// Entry 是单个房间的缓存条目。
type Entry struct {
	Code      string
	UpdatedAt time.Time
	Dirty     bool
	// Version 每次内容变化时递增，自动保存用它判断快照之后是否有新的编辑
	Version uint64
	// Seeded 表示 Code 已从存储中载入，作为比较基准
	Seeded bool
	Roster *Roster
}

// Roster 是成员变化后刷新的房间成员快照。
type Roster struct {
	InstructorID uint
	Participants []domain.Participant
}

// RoleOf 返回用户在快照中的角色
func (r Roster) RoleOf(userID uint) domain.ParticipantRole {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p.Role
		}
	}
	return domain.RoleNone
}

// IsInstructor 判断用户是否为房间讲师
func (r Roster) IsInstructor(userID uint) bool {
	return userID != 0 && r.InstructorID == userID
}

func (r *Roster) clone() *Roster {
	if r == nil {
		return nil
	}
	return &Roster{
		InstructorID: r.InstructorID,
		Participants: append([]domain.Participant(nil), r.Participants...),
	}
}

// DirtyEntry 是自动保存时取出的脏数据快照。
type DirtyEntry struct {
	RoomID  uint
	Code    string
	Version uint64
}

// Cache 是进程内的房间状态缓存，所有方法并发安全。
type Cache struct {
	mu      sync.RWMutex
	entries map[uint]*Entry
	now     func() time.Time
}

// NewCache 创建空缓存
func NewCache() *Cache {
	return &Cache{
		entries: make(map[uint]*Entry),
		now:     time.Now,
	}
}

func (c *Cache) entry(roomID uint) *Entry {
	e, ok := c.entries[roomID]
	if !ok {
		e = &Entry{}
		c.entries[roomID] = e
	}
	return e
}

// Seed 用已保存的内容初始化房间条目。条目已有编辑时不覆盖。
func (c *Cache) Seed(roomID uint, savedCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(roomID)
	if e.Version > 0 {
		return
	}
	e.Code = savedCode
	e.Seeded = true
}

// UpdateCode 写入最新的编辑器内容。内容与缓存（或已保存的内容）一致时不标记为脏，返回 false。
// 房间还没有任何编辑时收到的空内容视为编辑器初始化，同样忽略。
func (c *Cache) UpdateCode(roomID uint, code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[roomID]
	if ok && (e.Version > 0 || e.Seeded) && e.Code == code {
		e.UpdatedAt = c.now()
		return false
	}
	if (!ok || e.Version == 0) && code == "" {
		return false
	}
	if !ok {
		e = c.entry(roomID)
	}
	e.Code = code
	e.UpdatedAt = c.now()
	e.Dirty = true
	e.Version++
	return true
}

// Code 返回缓存中的编辑器内容
func (c *Cache) Code(roomID uint) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[roomID]
	if !ok || e.Version == 0 {
		return "", false
	}
	return e.Code, true
}

// DirtySnapshot 返回所有脏条目的副本，不修改缓存。
func (c *Cache) DirtySnapshot() []DirtyEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DirtyEntry, 0)
	for id, e := range c.entries {
		if e.Dirty {
			out = append(out, DirtyEntry{RoomID: id, Code: e.Code, Version: e.Version})
		}
	}
	return out
}

// MarkClean 仅在版本未变化时清除脏标记，返回是否清除成功。
func (c *Cache) MarkClean(roomID uint, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[roomID]
	if !ok || e.Version != version {
		return false
	}
	e.Dirty = false
	return true
}

// SetRoster 在成员变化后刷新成员快照
func (c *Cache) SetRoster(roomID, instructorID uint, participants []domain.Participant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(roomID).Roster = &Roster{
		InstructorID: instructorID,
		Participants: append([]domain.Participant(nil), participants...),
	}
}

// Roster 返回成员快照；第二个返回值为 false 时调用方应从存储中重新加载。
func (c *Cache) Roster(roomID uint) (Roster, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[roomID]
	if !ok || e.Roster == nil {
		return Roster{}, false
	}
	return *e.Roster.clone(), true
}

// Get 返回条目副本，主要用于测试和诊断
func (c *Cache) Get(roomID uint) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[roomID]
	if !ok {
		return Entry{}, false
	}
	cp := *e
	cp.Roster = e.Roster.clone()
	return cp, true
}

// Remove 删除房间的全部缓存，房间被删除时调用。
func (c *Cache) Remove(roomID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, roomID)
}

// Len 返回缓存的房间数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
