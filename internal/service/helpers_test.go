package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// memRoomRepo 是 CodingRoomRepository 的内存实现，读写都做深拷贝。
type memRoomRepo struct {
	mu        sync.Mutex
	rooms     map[uint]*domain.CodingRoom
	nextID    uint
	nextMsgID uint
	saves     int
	codeSaves []string
	failCode  map[uint]error
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rooms: make(map[uint]*domain.CodingRoom), failCode: make(map[uint]error)}
}

func cloneRoom(r *domain.CodingRoom) *domain.CodingRoom {
	c := *r
	c.Participants = append([]domain.Participant(nil), r.Participants...)
	c.KickList = append([]domain.KickEntry(nil), r.KickList...)
	c.ChatMessages = append([]domain.RoomMessage(nil), r.ChatMessages...)
	if r.InviteToken != nil {
		t := *r.InviteToken
		c.InviteToken = &t
	}
	return &c
}

func (m *memRoomRepo) Create(_ context.Context, room *domain.CodingRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	room.ID = m.nextID
	m.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (m *memRoomRepo) FindByID(_ context.Context, id uint) (*domain.CodingRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return cloneRoom(r), nil
}

func (m *memRoomRepo) FindAll(_ context.Context) ([]domain.CodingRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CodingRoom, 0, len(m.rooms))
	for id := uint(1); id <= m.nextID; id++ {
		if r, ok := m.rooms[id]; ok {
			out = append(out, *cloneRoom(r))
		}
	}
	return out, nil
}

func (m *memRoomRepo) Save(_ context.Context, room *domain.CodingRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rooms[room.ID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	c := cloneRoom(room)
	c.ChatMessages = stored.ChatMessages
	c.CodeContent = stored.CodeContent
	m.rooms[room.ID] = c
	m.saves++
	return nil
}

func (m *memRoomRepo) AppendMessage(_ context.Context, roomID uint, msg *domain.RoomMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	m.nextMsgID++
	msg.ID = m.nextMsgID
	msg.RoomID = roomID
	r.ChatMessages = append(r.ChatMessages, *msg)
	return nil
}

func (m *memRoomRepo) UpdateCode(_ context.Context, roomID uint, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failCode[roomID]; err != nil {
		return err
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	r.CodeContent = code
	m.codeSaves = append(m.codeSaves, code)
	return nil
}

func (m *memRoomRepo) UpdateLanguage(_ context.Context, roomID uint, language string) error {
	return m.update(roomID, func(r *domain.CodingRoom) { r.Language = language })
}

func (m *memRoomRepo) UpdateEditorType(_ context.Context, roomID uint, editorType string) error {
	return m.update(roomID, func(r *domain.CodingRoom) { r.EditorType = editorType })
}

func (m *memRoomRepo) update(roomID uint, fn func(*domain.CodingRoom)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	fn(r)
	return nil
}

func (m *memRoomRepo) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return repository.ErrRoomNotFound
	}
	delete(m.rooms, id)
	return nil
}

func (m *memRoomRepo) stored(id uint) *domain.CodingRoom {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return cloneRoom(r)
	}
	return nil
}

// setStoredCode 模拟上次运行已经落库的内容，不计入写入记录
func (m *memRoomRepo) setStoredCode(id uint, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[id].CodeContent = code
}

func (m *memRoomRepo) codeWrites() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.codeSaves...)
}

// memUserRepo 是 UserRepository 的内存实现
type memUserRepo struct {
	mu    sync.Mutex
	users map[uint]domain.User
}

func newMemUserRepo(users ...domain.User) *memUserRepo {
	m := &memUserRepo{users: make(map[uint]domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserRepo) FindByID(_ context.Context, id uint) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUserRepo) FindByIDs(_ context.Context, ids []uint) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) Save(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

// delivery 是某个连接收到的一条事件
type delivery struct {
	ConnID string
	Event  string
	Data   json.RawMessage
}

// recordingBus 是 Broadcaster 的测试实现：维护订阅关系并把每次广播展开成逐连接的投递记录。
type recordingBus struct {
	mu         sync.Mutex
	conns      map[string]uint            // connID -> userID
	topics     map[string]map[string]bool // topic -> connIDs
	deliveries []delivery
	evicted    []uint
	closed     []string
}

func newRecordingBus() *recordingBus {
	return &recordingBus{conns: make(map[string]uint), topics: make(map[string]map[string]bool)}
}

// connect 登记连接的身份，EvictUser 依赖它
func (b *recordingBus) connect(connID string, userID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[connID] = userID
}

func (b *recordingBus) Subscribe(connID, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[string]bool)
	}
	b.topics[topic][connID] = true
}

func (b *recordingBus) Unsubscribe(connID, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topics[topic], connID)
}

func (b *recordingBus) IsSubscribed(connID, topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.topics[topic][connID]
}

func (b *recordingBus) Broadcast(topic, event string, payload interface{}, excludeConnID string) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	// 按 connID 排序不重要，测试只比较每个连接各自的事件序列
	for connID := range b.topics[topic] {
		if connID == excludeConnID {
			continue
		}
		b.deliveries = append(b.deliveries, delivery{ConnID: connID, Event: event, Data: raw})
	}
}

func (b *recordingBus) EvictUser(topic string, userID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for connID := range b.topics[topic] {
		if b.conns[connID] == userID {
			delete(b.topics[topic], connID)
		}
	}
	b.evicted = append(b.evicted, userID)
}

func (b *recordingBus) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.topics, topic)
	b.closed = append(b.closed, topic)
}

// received 返回某个连接按顺序收到的事件
func (b *recordingBus) received(connID string) []delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []delivery
	for _, d := range b.deliveries {
		if d.ConnID == connID {
			out = append(out, d)
		}
	}
	return out
}

// lastOf 返回某个连接最近一次收到的指定事件
func (b *recordingBus) lastOf(connID, event string) (json.RawMessage, bool) {
	got := b.received(connID)
	for i := len(got) - 1; i >= 0; i-- {
		if got[i].Event == event {
			return got[i].Data, true
		}
	}
	return nil, false
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliveries = nil
}

var errDiskFull = errors.New("disk full")
