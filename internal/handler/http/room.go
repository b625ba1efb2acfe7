package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

// RoomHandler 封装了编程房间管理相关的 HTTP 处理逻辑
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest 定义创建房间请求的结构体
type CreateRoomRequest struct {
	Name       string            `json:"name" binding:"required,max=191"`
	Visibility domain.Visibility `json:"visibility" binding:"omitempty,oneof=public private"`
}

// CreateRoom 处理创建新房间的请求，仅讲师可用
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, req.Name, req.Visibility)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("room_id", room.ID).Info("Handler.CreateRoom: Room created successfully")
	SuccessResponse(c, http.StatusCreated, "Coding room created successfully", room)
}

// DeleteRoom 删除房间，只有房间讲师可以删除
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.roomService.DeleteRoom(c.Request.Context(), roomID, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Coding room deleted successfully", nil)
}

// JoinRoomRequest 定义加入房间请求的结构体，公开房间可以不带令牌
type JoinRoomRequest struct {
	JoiningToken string `json:"joiningToken" binding:"omitempty,max=64"`
}

// JoinRoom 校验用户能否加入房间并返回房间信息。
// 参与者列表在用户通过 WebSocket 加入时才更新。
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	var req JoinRoomRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logCtx.WithError(err).Warn("Handler.JoinRoom: Invalid input format")
			ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	details, err := h.roomService.CheckJoin(c.Request.Context(), roomID, userID, req.JoiningToken)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.JoinRoom: Join check failed")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Joined coding room successfully", details)
}

// UpdateRoleRequest 定义修改参与者角色的请求
type UpdateRoleRequest struct {
	RoomID uint                   `json:"roomId" binding:"required"`
	UserID uint                   `json:"userId" binding:"required"`
	Role   domain.ParticipantRole `json:"role" binding:"required,oneof=viewer editor"`
}

// UpdateRole 由讲师修改参与者角色，在线成员会收到 editStatusChanged 广播
func (h *RoomHandler) UpdateRole(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Handler.UpdateRole: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	participants, err := h.roomService.UpdateRole(c.Request.Context(), req.RoomID, req.UserID, req.Role, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Role updated successfully", participants)
}

// ListRooms 列出所有房间，不包含邀请令牌
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Coding rooms fetched successfully", rooms)
}

// GetRoom 返回房间详情，邀请令牌只对讲师可见
func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}

	details, err := h.roomService.GetRoomDetails(c.Request.Context(), roomID, userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Coding room fetched successfully", details)
}
