package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/middleware"
)

// 所有 HTTP 接口统一使用 {"success", "message", "data"} 的响应格式

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "message": message})
}

func SuccessResponse(c *gin.Context, code int, message string, data interface{}) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

// currentUser 读取 Auth 中间件写入的用户 ID，缺失时直接写回 401
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		logrus.WithField("path", c.FullPath()).Warn("Handler: User ID not found in context, middleware missing or failed?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return 0, false
	}
	return userID, true
}

// pathID 解析路径参数中的数字 ID，非法时直接写回 400
func pathID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}
