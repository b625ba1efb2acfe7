package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

// ChatHandler 处理全局聊天室的 HTTP 接口
type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type CreateChatRoomRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Icon string `json:"icon" binding:"required,max=512"`
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	rooms, err := h.chatService.ListRooms(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Chat rooms fetched successfully", rooms)
}

// CreateRoom 创建聊天室，路由层限制为管理员
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	var req CreateChatRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	room, err := h.chatService.CreateRoom(c.Request.Context(), req.Name, req.Icon)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Chat room created successfully", room)
}

// Messages 返回最近的聊天记录，最新的在前
func (h *ChatHandler) Messages(c *gin.Context) {
	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}
	messages, err := h.chatService.History(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Messages fetched successfully", messages)
}
