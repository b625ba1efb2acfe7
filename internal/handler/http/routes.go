package http

import (
	"github.com/gin-gonic/gin"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/middleware"
)

// Handlers 汇总 /api 下的全部处理器
type Handlers struct {
	Auth *AuthHandler
	Room *RoomHandler
	Chat *ChatHandler
}

// RegisterRoutes 在 api 分组下注册全部 REST 路由
func RegisterRoutes(api *gin.RouterGroup, h Handlers, jwtSecret string) {
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
	}

	instructorOnly := middleware.RequireAccountType(domain.AccountInstructor)
	roomRoutes := api.Group("/coderoom", middleware.Auth(jwtSecret))
	{
		roomRoutes.POST("/create", instructorOnly, h.Room.CreateRoom)
		roomRoutes.DELETE("/delete/:id", instructorOnly, h.Room.DeleteRoom)
		roomRoutes.POST("/join/:id", h.Room.JoinRoom)
		roomRoutes.POST("/updaterole", instructorOnly, h.Room.UpdateRole)
		roomRoutes.GET("/get", h.Room.ListRooms)
		roomRoutes.GET("/get/:roomId", h.Room.GetRoom)
	}

	chatRoutes := api.Group("/chat", middleware.Auth(jwtSecret))
	{
		chatRoutes.GET("/rooms", h.Chat.ListRooms)
		chatRoutes.POST("/rooms", middleware.RequireAccountType(domain.AccountAdmin), h.Chat.CreateRoom)
		chatRoutes.GET("/messages/:roomId", h.Chat.Messages)
	}
}
