package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/presence"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

const defaultAutosaveConcurrency = 8

// AutosaveService 把内存中的脏编辑器内容写回房间存储。
type AutosaveService struct {
	rooms       repository.CodingRoomRepository
	cache       *presence.Cache
	concurrency int
}

// NewAutosaveService 创建 AutosaveService 实例，concurrency <= 0 时使用默认并发数。
func NewAutosaveService(rooms repository.CodingRoomRepository, cache *presence.Cache, concurrency int) *AutosaveService {
	if rooms == nil || cache == nil {
		panic("CodingRoomRepository and presence cache cannot be nil for AutosaveService")
	}
	if concurrency <= 0 {
		concurrency = defaultAutosaveConcurrency
	}
	return &AutosaveService{rooms: rooms, cache: cache, concurrency: concurrency}
}

// Sweep 保存所有脏条目，返回成功保存的房间数。
// 单个房间失败只记录日志，不影响其他房间；只有在 ctx 被取消时返回错误。
func (s *AutosaveService) Sweep(ctx context.Context) (int, error) {
	dirty := s.cache.DirtySnapshot()
	if len(dirty) == 0 {
		return 0, nil
	}

	var saved int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, entry := range dirty {
		entry := entry
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			logCtx := logrus.WithFields(logrus.Fields{"room_id": entry.RoomID, "version": entry.Version})
			if err := s.rooms.UpdateCode(gCtx, entry.RoomID, entry.Code); err != nil {
				if errors.Is(err, repository.ErrRoomNotFound) {
					// 房间已被删除，丢弃缓存避免每轮重试
					logCtx.Warn("Autosave: room no longer exists, dropping buffered code")
					s.cache.Remove(entry.RoomID)
					return nil
				}
				logCtx.WithError(err).Error("Autosave: failed to persist code")
				return nil
			}
			if !s.cache.MarkClean(entry.RoomID, entry.Version) {
				logCtx.Debug("Autosave: newer edit arrived during save, keeping entry dirty")
			}
			atomic.AddInt64(&saved, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(atomic.LoadInt64(&saved)), err
	}

	logrus.WithFields(logrus.Fields{"dirty": len(dirty), "saved": saved}).Info("Autosave sweep finished")
	return int(saved), nil
}
