package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chromaproxy/internal/metrics"
	appErr "github.com/xxxsen/chromaproxy/internal/pkg/errors"
	"github.com/xxxsen/chromaproxy/internal/vectordb"
)

type Options struct {
	// AutoCreate selects get-or-create resolution. When false a missing
	// collection is reported as not found by every operation.
	AutoCreate     bool
	Timeout        time.Duration
	DefaultResults int
	MaxResults     int
}

// resolver wraps every backend call with the per-call timeout and metrics,
// and owns the collection resolution policy.
type resolver struct {
	client vectordb.Client
	opts   Options
}

func newResolver(client vectordb.Client, opts Options) resolver {
	return resolver{client: client, opts: opts}
}

func (r resolver) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		logutil.GetLogger(ctx).Debug("vectordb call failed", zap.String("op", op), zap.Error(err))
	}
	metrics.VectorDBCallsTotal.WithLabelValues(op, status).Inc()
	metrics.VectorDBCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

func (r resolver) resolve(ctx context.Context, name string) (vectordb.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name required", appErr.ErrInvalid)
	}
	var col vectordb.Collection
	op, get := "get_collection", r.client.GetCollection
	if r.opts.AutoCreate {
		op, get = "get_or_create_collection", r.client.GetOrCreateCollection
	}
	err := r.call(ctx, op, func(ctx context.Context) error {
		var err error
		col, err = get(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nil, fmt.Errorf("collection %s: %w", name, appErr.ErrNotFound)
	}
	return col, nil
}
