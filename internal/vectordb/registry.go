package vectordb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/chromaproxy/internal/config"
)

type Factory func(cfg config.VectorDBConfig) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.VectorDBConfig) (Client, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("vectordb.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vectordb type: %s", cfg.Type)
	}
	return factory(cfg)
}
