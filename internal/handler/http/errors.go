package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AbhishekNavgan95/Devnest-Backend/internal/service"
)

// HandleServiceError 把业务错误映射为 HTTP 状态码
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed),
		errors.Is(err, service.ErrChatRoomExists):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidEvent):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrChatRoomNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNotParticipant):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
