package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chromaproxy/internal/pkg/errcode"
	"github.com/xxxsen/chromaproxy/internal/pkg/response"
)

// Recovery turns a panic in any handler into a logged 500 reply.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logutil.GetLogger(c.Request.Context()).Error("panic recovered",
			zap.String("request_id", c.GetString(ContextRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		response.Abort(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	})
}
