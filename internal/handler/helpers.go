package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chromaproxy/internal/middleware"
	"github.com/xxxsen/chromaproxy/internal/pkg/errcode"
	appErr "github.com/xxxsen/chromaproxy/internal/pkg/errors"
	"github.com/xxxsen/chromaproxy/internal/pkg/response"
)

// bindOptionalJSON decodes the body into dst when there is one. An empty
// body is not an error.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func invalid(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, message)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, code, message := classify(err)
	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logutil.GetLogger(c.Request.Context()).Error("request failed", fields...)
	} else {
		logutil.GetLogger(c.Request.Context()).Warn("request rejected", fields...)
	}
	response.Error(c, status, code, message)
}

func classify(err error) (int, int, string) {
	switch {
	case appErr.IsInvalid(err):
		return http.StatusBadRequest, errcode.ErrInvalid, err.Error()
	case errors.Is(err, appErr.ErrUnauthorized):
		return http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized"
	case appErr.IsNotFound(err):
		return http.StatusNotFound, errcode.ErrNotFound, "not found"
	case appErr.IsConflict(err):
		return http.StatusConflict, errcode.ErrConflict, "conflict"
	case errors.Is(err, appErr.ErrTooMany):
		return http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errcode.ErrUnavailable, "vector database timeout"
	case errors.Is(err, appErr.ErrUnavailable):
		return http.StatusServiceUnavailable, errcode.ErrUnavailable, "vector database unavailable"
	default:
		return http.StatusInternalServerError, errcode.ErrInternal, "internal error"
	}
}
