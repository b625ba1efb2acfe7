package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

// AuthHandler 封装了与用户认证相关的 HTTP 处理逻辑
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest 定义注册请求的结构体
type RegisterRequest struct {
	FirstName   string             `json:"firstName" binding:"required,max=100"`
	LastName    string             `json:"lastName" binding:"omitempty,max=100"`
	Email       string             `json:"email" binding:"required,email"`
	Password    string             `json:"password" binding:"required,min=6,max=72"`
	AccountType domain.AccountType `json:"accountType" binding:"omitempty,oneof=Student Instructor Admin"`
}

// Register 处理用户注册请求
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Register: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		AccountType: req.AccountType,
	})
	if err != nil {
		logrus.WithError(err).WithField("email", req.Email).Warn("Handler.Register: Registration failed")
		HandleServiceError(c, err)
		return
	}

	logrus.WithField("user_id", user.ID).Info("Handler.Register: User registered successfully")
	SuccessResponse(c, http.StatusCreated, "User registered successfully", user)
}

// LoginRequest 定义登录请求的结构体
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 定义登录成功返回的数据
type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Login 处理用户登录请求
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: email and password required")
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithField("user_id", user.ID).Info("Handler.Login: User logged in successfully")
	SuccessResponse(c, http.StatusOK, "Login successful", LoginResponse{Token: token, User: user})
}
