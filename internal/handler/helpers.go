package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/middleware"
	"github.com/xxxsen/sharebox/internal/pkg/errcode"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/pkg/response"
)

func getOwnerID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextOwnerIDKey)
	ownerID, _ := value.(string)
	return ownerID
}

func queryUint(c *gin.Context, name string) uint {
	value := c.Query(name)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	fields := []zap.Field{
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("owner_id", getOwnerID(c)),
		zap.Error(err),
	}
	logger := logutil.GetLogger(c.Request.Context())

	var verr *appErr.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Info("request rejected", fields...)
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, verr.Error())
	case errors.Is(err, appErr.ErrInvalid):
		logger.Info("request rejected", fields...)
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrUnauthorized):
		logger.Info("request rejected", fields...)
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		logger.Info("request rejected", fields...)
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		logger.Info("request rejected", fields...)
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrExpired):
		logger.Info("request rejected", fields...)
		response.Error(c, http.StatusGone, errcode.ErrExpired, "link expired")
	case errors.Is(err, appErr.ErrConflict):
		logger.Warn("request conflicted", fields...)
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		logger.Warn("request throttled", fields...)
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, appErr.ErrStorage):
		logger.Error("storage unavailable", fields...)
		response.Error(c, http.StatusServiceUnavailable, errcode.ErrStorage, "storage unavailable")
	default:
		logger.Error("request failed", fields...)
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
