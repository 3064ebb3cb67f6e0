// Package workerpool runs submitted tasks on a bounded set of goroutines that
// are created on demand and retired after sitting idle.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/humble/internal/components/logging"
)

var ErrPoolStopped = errors.New("worker pool stopped")

const (
	DefaultMaxWorkers  = 20
	DefaultIdleTimeout = 2 * time.Second
)

// Config bounds the pool. MinIdle workers are never retired once created.
type Config struct {
	MinIdle     int           `yaml:"min_idle" json:"min_idle"`
	MaxWorkers  int           `yaml:"max_workers" json:"max_workers"`
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// Task is one unit of work. ctx is cancelled when the pool stops.
type Task interface {
	Run(ctx context.Context)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context)

func (f TaskFunc) Run(ctx context.Context) { f(ctx) }

// Discarder is implemented by tasks that hold resources which must be
// released when the pool stops before the task ever runs.
type Discarder interface {
	Discard()
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers   int    `json:"workers"`
	Idle      int    `json:"idle"`
	Running   int    `json:"running"`
	Queued    int    `json:"queued"`
	Peak      int    `json:"peak_running"`
	Completed uint64 `json:"completed"`
}

type Pool struct {
	cfg Config

	mu        sync.Mutex
	queue     []Task
	workers   int
	idle      int
	running   int
	peak      int
	completed uint64
	stopped   bool

	notify chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an idle pool; workers start with the first submission.
func New(cfg Config) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MinIdle < 0 {
		cfg.MinIdle = 0
	}
	if cfg.MinIdle > cfg.MaxWorkers {
		cfg.MinIdle = cfg.MaxWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:    cfg,
		notify: make(chan struct{}, cfg.MaxWorkers),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Config returns the effective configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// Submit queues t and makes sure a worker will pick it up. It never blocks:
// when every worker is busy the task waits in the queue.
func (p *Pool) Submit(t Task) error {
	if t == nil {
		return fmt.Errorf("nil task")
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.queue = append(p.queue, t)
	spawn := len(p.queue) > p.idle && p.workers < p.cfg.MaxWorkers
	if spawn {
		p.workers++
		p.wg.Add(1)
	}
	p.mu.Unlock()

	if spawn {
		go p.worker()
	}
	p.wake()
	return nil
}

func (p *Pool) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	timer := time.NewTimer(p.cfg.IdleTimeout)
	defer timer.Stop()

	for {
		p.mu.Lock()
		if p.stopped {
			p.workers--
			p.mu.Unlock()
			return
		}
		if len(p.queue) > 0 {
			t := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			p.running++
			if p.running > p.peak {
				p.peak = p.running
			}
			more := len(p.queue) > 0
			p.mu.Unlock()

			if more {
				p.wake()
			}
			p.run(t)

			p.mu.Lock()
			p.running--
			p.completed++
			p.mu.Unlock()
			continue
		}
		p.idle++
		p.mu.Unlock()

		timer.Reset(p.cfg.IdleTimeout)
		select {
		case <-p.notify:
			timer.Stop()
			p.mu.Lock()
			p.idle--
			p.mu.Unlock()
		case <-timer.C:
			p.mu.Lock()
			p.idle--
			if len(p.queue) == 0 && p.workers > p.cfg.MinIdle {
				p.workers--
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
		case <-p.done:
			p.mu.Lock()
			p.idle--
			p.workers--
			p.mu.Unlock()
			return
		}
	}
}

func (p *Pool) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(p.ctx, "worker task panicked", zap.Any("panic", r))
		}
	}()
	t.Run(p.ctx)
}

// Stop rejects further submissions, drops queued tasks (calling Discard on
// those that implement it) and cancels the context of running tasks.
// It returns the number of dropped tasks and does not wait; see Wait.
func (p *Pool) Stop() int {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return 0
	}
	p.stopped = true
	dropped := p.queue
	p.queue = nil
	p.mu.Unlock()

	close(p.done)
	p.cancel()
	for _, t := range dropped {
		if d, ok := t.(Discarder); ok {
			d.Discard()
		}
	}
	return len(dropped)
}

// Wait blocks until every worker has exited or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers:   p.workers,
		Idle:      p.idle,
		Running:   p.running,
		Queued:    len(p.queue),
		Peak:      p.peak,
		Completed: p.completed,
	}
}
