package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chromaproxy/internal/metrics"
	"github.com/xxxsen/chromaproxy/internal/pkg/errcode"
	"github.com/xxxsen/chromaproxy/internal/pkg/response"
)

type windowCount struct {
	start time.Time
	count int
}

type rateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	seen   *expirable.LRU[string, *windowCount]
	now    func() time.Time
}

// RateLimit allows limit requests per key in each fixed window. The key is
// client ip, token subject and route. At most capacity keys are tracked.
func RateLimit(window time.Duration, limit, capacity int) gin.HandlerFunc {
	if window <= 0 || limit <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return newRateLimiter(window, limit, capacity).handle
}

func newRateLimiter(window time.Duration, limit, capacity int) *rateLimiter {
	if capacity <= 0 {
		capacity = 4096
	}
	return &rateLimiter{
		window: window,
		limit:  limit,
		seen:   expirable.NewLRU[string, *windowCount](capacity, nil, window),
		now:    time.Now,
	}
}

func (l *rateLimiter) handle(c *gin.Context) {
	ip := c.ClientIP()
	subject := c.GetString(ContextSubjectKey)
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, subject, path}, "|")

	now := l.now()
	l.mu.Lock()
	entry, ok := l.seen.Get(key)
	if !ok || now.Sub(entry.start) >= l.window {
		l.seen.Add(key, &windowCount{start: now, count: 1})
		l.mu.Unlock()
		c.Next()
		return
	}
	if entry.count >= l.limit {
		l.mu.Unlock()
		metrics.RateLimitRejectedTotal.Inc()
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("subject", subject),
			zap.String("path", path),
		)
		response.Abort(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		return
	}
	entry.count++
	l.mu.Unlock()
	c.Next()
}
