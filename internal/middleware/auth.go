package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/domain"
	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

// 写入 gin.Context 的键
const (
	ContextUserID      = "user_id"
	ContextAccountType = "account_type"
)

// ErrMissingAuthHeader 定义一个自定义错误，用于表示缺少 Authorization 头
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// Auth 返回一个 Gin 中间件，用于验证 JWT token。
// 浏览器的 WebSocket 握手无法设置请求头，所以也接受 ?token= 查询参数。
func Auth(jwtSecret string) gin.HandlerFunc {
	// 在创建中间件时就进行检查，避免运行时 panic
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}

	return func(c *gin.Context) {
		// 1. 提取 Token
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Warn("Auth middleware: Missing Authorization header")
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header is required"})
			} else {
				logrus.Warnf("Auth middleware: Malformed token format: %v", err)
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token format"})
			}
			c.Abort()
			return
		}

		// 2. 验证 Token
		claims, err := service.ParseToken(tokenStr, jwtSecret)
		if err != nil {
			logCtx := logrus.WithError(err)
			logCtx.Warn("Auth middleware: Invalid token")
			var validationError *jwt.ValidationError
			if errors.As(err, &validationError) {
				if validationError.Errors&jwt.ValidationErrorExpired != 0 {
					logCtx.Warn("Reason: Token is expired")
				}
				if validationError.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
					logCtx.Warn("Reason: Token signature is invalid")
				}
			}
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			c.Abort()
			return
		}

		// 3. 将身份写入上下文，供后续处理程序使用
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextAccountType, claims.AccountType)
		logrus.WithField("user_id", claims.UserID).Debug("Auth middleware: User authenticated via JWT")

		c.Next()
	}
}

// RequireAccountType 只放行指定账户类型的请求，必须挂在 Auth 之后。
func RequireAccountType(types ...domain.AccountType) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountType, _ := AccountTypeFrom(c)
		for _, t := range types {
			if accountType == t {
				c.Next()
				return
			}
		}
		logrus.WithFields(logrus.Fields{"account_type": accountType, "path": c.FullPath()}).Warn("Auth middleware: Account type not allowed")
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not allowed to access this resource"})
		c.Abort()
	}
}

// UserIDFrom 读取 Auth 中间件写入的用户 ID
func UserIDFrom(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// AccountTypeFrom 读取 Auth 中间件写入的账户类型
func AccountTypeFrom(c *gin.Context) (domain.AccountType, bool) {
	v, ok := c.Get(ContextAccountType)
	if !ok {
		return "", false
	}
	t, ok := v.(domain.AccountType)
	return t, ok
}

// extractToken 优先读取 Bearer 头，其次读取 token 查询参数
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, nil
		}
		return "", ErrMissingAuthHeader
	}
	// Authorization header 格式应为 "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", jwt.ErrTokenMalformed
	}
	return parts[1], nil
}
