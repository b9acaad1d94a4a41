// Package engine serializes every access to the runtime onto one goroutine.
// HTTP handlers, the config watcher and the tick clock all submit commands to
// a bounded inbox; the engine goroutine runs them in arrival order between
// ticks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/soundrig/internal/config"
	"github.com/gyaneshwarpardhi/soundrig/internal/metrics"
	"github.com/gyaneshwarpardhi/soundrig/internal/runtime"
	"github.com/gyaneshwarpardhi/soundrig/internal/trigger"
)

var (
	// ErrQueueFull is returned when the inbox cannot take another command.
	ErrQueueFull = errors.New("command queue full")
	// ErrTimeout is returned when a synchronous command does not finish in time.
	ErrTimeout = errors.New("command timeout")
	// ErrStopped is returned once the engine has shut down.
	ErrStopped = errors.New("engine stopped")
)

// Command runs against the runtime on the engine goroutine.
type Command func(rt *runtime.Runtime) (any, error)

type reply struct {
	value any
	err   error
}

type request struct {
	cmd   Command
	reply chan reply
}

// Engine owns a runtime and drives its clock.
type Engine struct {
	rt      *runtime.Runtime
	graph   atomic.Pointer[trigger.Graph]
	inbox   *inbox[*request]
	conf    config.EngineConf
	timeout time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New starts the engine goroutine. With a positive tick_hz the runtime is
// ticked on a wall-clock ticker at 1/tick_hz seconds per frame; otherwise the
// clock only moves through Step.
func New(ctx context.Context, rt *runtime.Runtime, conf config.EngineConf) *Engine {
	ctx, cancel := context.WithCancel(ctx)
	e := &Engine{
		rt:      rt,
		inbox:   newInbox[*request](conf.QueueDepth),
		conf:    conf,
		timeout: time.Duration(conf.CommandTimeoutMs) * time.Millisecond,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if e.timeout <= 0 {
		e.timeout = 2 * time.Second
	}
	e.graph.Store(rt.Graph())
	go e.run(ctx)
	return e
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	var tickC <-chan time.Time
	var dt float64
	if e.conf.TickHz > 0 {
		interval := time.Second / time.Duration(e.conf.TickHz)
		dt = 1 / float64(e.conf.TickHz)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			e.inbox.Drain(func(req *request) { req.respond(nil, ErrStopped) })
			return
		case req := <-e.inbox.queue:
			e.handle(req)
		case <-tickC:
			// Commands that arrived during the previous frame run before the
			// clock moves.
			e.inbox.Drain(e.handle)
			e.tick(dt)
		}
	}
}

func (e *Engine) handle(req *request) {
	v, err := e.exec(req.cmd)
	req.respond(v, err)
}

func (e *Engine) exec(cmd Command) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("command panicked", "panic", p)
			err = fmt.Errorf("command panicked: %v", p)
		}
	}()
	return cmd(e.rt)
}

func (r *request) respond(v any, err error) {
	if r.reply != nil {
		r.reply <- reply{value: v, err: err}
	}
}

func (e *Engine) tick(dt float64) {
	start := time.Now()
	e.rt.Tick(dt)
	metrics.TickDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.QueueUtilization.Set(e.QueueUtilization())
}

// ProcessSync runs cmd on the engine goroutine and waits for its result.
func (e *Engine) ProcessSync(ctx context.Context, cmd Command) (any, error) {
	req := &request{cmd: cmd, reply: make(chan reply, 1)}
	if err := e.submit(req); err != nil {
		return nil, err
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	select {
	case res := <-req.reply:
		return res.value, res.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, e.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, ErrStopped
	}
}

// ProcessAsync enqueues cmd for background execution. Errors are logged.
func (e *Engine) ProcessAsync(cmd Command) error {
	return e.submit(&request{cmd: func(rt *runtime.Runtime) (any, error) {
		v, err := cmd(rt)
		if err != nil {
			slog.Warn("async command failed", "err", err)
		}
		return v, err
	}})
}

func (e *Engine) submit(req *request) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}
	if !e.inbox.Submit(req) {
		metrics.CommandsDropped.Inc()
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.inbox.Cap())
	}
	metrics.CommandsEnqueued.Inc()
	return nil
}

// Do runs fn on the engine goroutine and returns its typed result.
func Do[T any](ctx context.Context, e *Engine, fn func(rt *runtime.Runtime) (T, error)) (T, error) {
	var zero T
	v, err := e.ProcessSync(ctx, func(rt *runtime.Runtime) (any, error) {
		return fn(rt)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("command returned %T", v)
	}
	return t, nil
}

// Step advances the runtime by dt seconds on the engine goroutine. Used when
// tick_hz is zero and by tests.
func (e *Engine) Step(ctx context.Context, dt float64) error {
	_, err := e.ProcessSync(ctx, func(rt *runtime.Runtime) (any, error) {
		e.tick(dt)
		return nil, nil
	})
	return err
}

// SwapGraph installs g in the runtime (used on hot-reload).
func (e *Engine) SwapGraph(ctx context.Context, g *trigger.Graph) error {
	_, err := e.ProcessSync(ctx, func(rt *runtime.Runtime) (any, error) {
		return nil, rt.SwapGraph(g)
	})
	if err != nil {
		return err
	}
	e.graph.Store(g)
	return nil
}

// Graph returns the installed trigger graph. Safe from any goroutine.
func (e *Engine) Graph() *trigger.Graph {
	return e.graph.Load()
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.inbox.Cap() == 0 {
		return 0
	}
	return float64(e.inbox.Len()) / float64(e.inbox.Cap())
}

// Shutdown stops the engine goroutine. Queued commands fail with ErrStopped.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		e.cancel()
		<-e.done
	})
}
