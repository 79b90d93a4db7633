package job

import (
	"context"
	"time"

	"github.com/xxxsen/chromaproxy/internal/metrics"
)

const HeartbeatJobName = "vectordb_heartbeat"

type Pinger interface {
	Heartbeat(ctx context.Context) error
}

// HeartbeatJob checks the vector database and publishes the result on the
// chromaproxy_vectordb_up gauge.
type HeartbeatJob struct {
	pinger  Pinger
	timeout time.Duration
}

func NewHeartbeatJob(pinger Pinger, timeout time.Duration) *HeartbeatJob {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HeartbeatJob{pinger: pinger, timeout: timeout}
}

func (j *HeartbeatJob) Name() string {
	return HeartbeatJobName
}

func (j *HeartbeatJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := j.pinger.Heartbeat(ctx); err != nil {
		metrics.VectorDBUp.Set(0)
		return err
	}
	metrics.VectorDBUp.Set(1)
	return nil
}
