package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/dto"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/repository"
)

// resolveUsers 批量查询用户的展示信息。
// 查询失败或用户不存在时只保留 ID，不影响广播。
func resolveUsers(ctx context.Context, users repository.UserRepository, ids []uint) map[uint]domain.UserSummary {
	out := make(map[uint]domain.UserSummary, len(ids))
	for _, id := range ids {
		out[id] = domain.UserSummary{ID: id}
	}
	if len(ids) == 0 {
		return out
	}
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		logrus.WithError(err).WithField("count", len(ids)).Warn("Failed to resolve user display attributes")
		return out
	}
	for i := range found {
		out[found[i].ID] = found[i].Summary()
	}
	return out
}

func participantViews(ctx context.Context, users repository.UserRepository, participants []domain.Participant) []dto.ParticipantView {
	ids := make([]uint, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	summaries := resolveUsers(ctx, users, ids)

	views := make([]dto.ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, dto.ParticipantView{
			User:       summaries[p.UserID],
			Role:       p.Role,
			MutedUntil: p.MutedUntil,
		})
	}
	return views
}

func roomMessageViews(ctx context.Context, users repository.UserRepository, messages []domain.RoomMessage) []dto.RoomMessageView {
	ids := make([]uint, 0, len(messages))
	seen := make(map[uint]struct{}, len(messages))
	for _, m := range messages {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}
	summaries := resolveUsers(ctx, users, ids)

	views := make([]dto.RoomMessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, dto.RoomMessageView{
			ID:        m.ID,
			Sender:    summaries[m.SenderID],
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return views
}
