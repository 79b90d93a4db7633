package handler

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/xxxsen/chromaproxy/internal/pkg/response"
)

//go:embed openapi.yaml
var openAPIDoc []byte

type Pinger interface {
	Heartbeat(ctx context.Context) error
}

type SystemHandler struct {
	pinger  Pinger
	timeout time.Duration
	doc     map[string]interface{}
}

func NewSystemHandler(pinger Pinger, timeout time.Duration) (*SystemHandler, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(openAPIDoc, &doc); err != nil {
		return nil, fmt.Errorf("decode openapi doc: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SystemHandler{pinger: pinger, timeout: timeout, doc: doc}, nil
}

func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.pinger.Heartbeat(ctx); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok"})
}

func (h *SystemHandler) OpenAPI(c *gin.Context) {
	response.Success(c, h.doc)
}
