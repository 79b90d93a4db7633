package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, X-Request-Id"
	corsExposeHeader = "X-Request-Id"
	corsMaxAge       = "600"
)

// originPolicy matches request origins against an allowlist. Entries are
// exact origins, "*", or a single-label wildcard such as
// "https://*.example.com".
type originPolicy struct {
	any       bool
	exact     map[string]struct{}
	wildcards [][2]string
}

func newOriginPolicy(allowlist []string) originPolicy {
	p := originPolicy{exact: map[string]struct{}{}}
	for _, entry := range allowlist {
		entry = strings.TrimRight(strings.TrimSpace(entry), "/")
		switch {
		case entry == "":
		case entry == "*":
			p.any = true
		case strings.Contains(entry, "*"):
			prefix, suffix, _ := strings.Cut(entry, "*")
			p.wildcards = append(p.wildcards, [2]string{prefix, suffix})
		default:
			p.exact[entry] = struct{}{}
		}
	}
	if len(p.exact) == 0 && len(p.wildcards) == 0 {
		p.any = true
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.any {
		return true
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, w := range p.wildcards {
		if len(origin) <= len(w[0])+len(w[1]) || !strings.HasPrefix(origin, w[0]) || !strings.HasSuffix(origin, w[1]) {
			continue
		}
		if label := origin[len(w[0]) : len(origin)-len(w[1])]; !strings.ContainsAny(label, "./:") {
			return true
		}
	}
	return false
}

// CORS allows every origin when allowlist is empty. Preflight requests from
// origins outside the allowlist are refused with 403.
func CORS(allowlist []string) gin.HandlerFunc {
	policy := newOriginPolicy(allowlist)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		h := c.Writer.Header()
		allowed := origin == "" || policy.allows(origin)
		if allowed {
			if policy.any {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Expose-Headers", corsExposeHeader)
		}
		if !preflight {
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Max-Age", corsMaxAge)
		c.AbortWithStatus(http.StatusNoContent)
	}
}
