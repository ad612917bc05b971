package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrTaskRunning = errors.New("task already running")

// Ticker is the part of time.Ticker a PeriodicTask needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(interval time.Duration) Ticker

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func NewRealTicker(interval time.Duration) Ticker {
	return realTicker{time.NewTicker(interval)}
}

// PeriodicTask runs fn every interval on its own goroutine until stopped.
type PeriodicTask struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
	logger   *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	newTicker TickerFactory
}

func NewPeriodicTask(name string, interval time.Duration, fn func(ctx context.Context), logger *slog.Logger) *PeriodicTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &PeriodicTask{
		name:      name,
		interval:  interval,
		fn:        fn,
		logger:    logger,
		newTicker: NewRealTicker,
	}
}

func (t *PeriodicTask) Name() string {
	return t.name
}

// Start launches the loop. It returns immediately.
func (t *PeriodicTask) Start(ctx context.Context) error {
	if t.interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", t.name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return ErrTaskRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	ticker := t.newTicker(t.interval)

	go t.loop(loopCtx, ticker, t.done)

	t.logger.Info("periodic task started", "task", t.name, "interval", t.interval)
	return nil
}

func (t *PeriodicTask) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			t.RunOnce(ctx)
		}
	}
}

// Stop cancels the loop and waits for a run in progress to finish.
func (t *PeriodicTask) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.logger.Info("periodic task stopped", "task", t.name)
}

func (t *PeriodicTask) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// RunOnce invokes fn synchronously. A panic is logged and swallowed.
func (t *PeriodicTask) RunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in periodic task", "task", t.name, "panic", fmt.Sprint(r))
		}
	}()
	t.fn(ctx)
}
