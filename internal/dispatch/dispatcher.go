// Package dispatch runs best-effort calls to external services in the
// background. Job errors are logged and counted, never returned.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"claims-portal/internal/metrics"
)

// Job is a single side call. It should honour ctx cancellation.
type Job func(ctx context.Context) error

// Dispatcher bounds and tracks fire-and-forget jobs.
type Dispatcher interface {
	Start(ctx context.Context) error
	// Go schedules fn and returns immediately.
	Go(name string, fields logrus.Fields, fn Job)
	// Wait blocks until every scheduled job has finished.
	Wait()
	// Shutdown stops accepting jobs, waits for in-flight ones and cancels the base context.
	Shutdown()
}

type Config struct {
	MaxConcurrent int
	JobTimeout    time.Duration
	Logger        *logrus.Logger
}

type dispatcher struct {
	cfg Config

	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

func New(cfg Config) Dispatcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &dispatcher{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
	}
}

func (d *dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.cfg.Logger.Infof("dispatcher started, workers: %d", d.cfg.MaxConcurrent)
	return nil
}

func (d *dispatcher) Go(name string, fields logrus.Fields, fn Job) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.cfg.Logger.WithFields(fields).WithField("job", name).Warn("dispatcher closed, dropping job")
		return
	}
	if d.ctx == nil {
		d.ctx, d.cancel = context.WithCancel(context.Background())
	}
	base := d.ctx
	d.wg.Add(1)
	d.mu.Unlock()

	logger := d.cfg.Logger.WithFields(fields).WithField("job", name)

	go func() {
		defer d.wg.Done()
		select {
		case <-base.Done():
			logger.Warn("dispatcher stopped before job ran")
			return
		case d.sem <- struct{}{}:
			defer func() { <-d.sem }()
		}

		ctx, cancel := context.WithTimeout(base, d.cfg.JobTimeout)
		defer cancel()

		start := time.Now()
		err := d.run(ctx, fn)
		metrics.SideCall(name, err, time.Since(start))
		if err != nil {
			logger.Warnf("side call failed: %v", err)
			return
		}
		logger.Debug("side call completed")
	}()
}

func (d *dispatcher) run(ctx context.Context, fn Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return fn(ctx)
}

func (d *dispatcher) Wait() {
	d.wg.Wait()
}

func (d *dispatcher) Shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.cfg.Logger.Info("dispatcher stopped")
}
