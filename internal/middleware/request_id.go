package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/trace"
)

const (
	HeaderRequestID     = "X-Request-Id"
	ContextRequestIDKey = "request_id"
)

// RequestID echoes the request id in the response header. It reuses the
// trace id set by the webapi trace middleware so logs and headers agree.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID, ok := trace.GetTraceId(c.Request.Context())
		if !ok || reqID == "" {
			reqID = c.GetHeader(HeaderRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Request = c.Request.WithContext(trace.WithTraceId(c.Request.Context(), reqID))
		}
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
	}
}
