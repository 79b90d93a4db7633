package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chromaproxy/internal/metrics"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Trigger(name string) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler runs each job on its cron spec, never overlapping with
// itself. Runs are counted per outcome. A job's failures are logged when it
// starts failing and again when it recovers; repeats go to debug.
type CronScheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
}

type entry struct {
	job     Job
	spec    string
	id      cron.EntryID
	running atomic.Bool
	failing atomic.Bool
}

// NewCronScheduler accepts standard five-field specs and descriptors such
// as "@every 30s".
func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	e := &entry{job: job, spec: spec}
	id, err := c.cron.AddFunc(spec, func() { c.run(e) })
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	e.id = id
	c.entries[name] = e
	logger.Info("job scheduled")
	return nil
}

// Trigger runs the named job now, outside its schedule, and waits for it.
func (c *CronScheduler) Trigger(name string) error {
	c.mu.Lock()
	e, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not scheduled", name)
	}
	return c.run(e)
}

// Start binds job runs to ctx. Stop or cancelling ctx aborts running jobs.
func (c *CronScheduler) Start(ctx context.Context) {
	if ctx != nil {
		c.mu.Lock()
		c.cancel()
		c.ctx, c.cancel = context.WithCancel(ctx)
		c.mu.Unlock()
	}
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *CronScheduler) run(e *entry) error {
	name := e.job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", e.spec))
	if !e.running.CompareAndSwap(false, true) {
		metrics.JobRunsTotal.WithLabelValues(name, "skipped").Inc()
		logger.Debug("job skipped: still running")
		return nil
	}
	defer e.running.Store(false)

	start := time.Now()
	err := e.job.Run(c.runContext())
	elapsed := time.Since(start)
	metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
		if e.failing.Swap(true) {
			logger.Debug("job still failing", zap.Error(err), zap.Duration("duration", elapsed))
		} else {
			logger.Warn("job failed", zap.Error(err), zap.Duration("duration", elapsed))
		}
		return err
	}
	metrics.JobRunsTotal.WithLabelValues(name, "ok").Inc()
	if e.failing.Swap(false) {
		logger.Info("job recovered", zap.Duration("duration", elapsed))
	} else {
		logger.Debug("job finished", zap.Duration("duration", elapsed))
	}
	return nil
}
