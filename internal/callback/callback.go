// Package callback delivers load results on an execution context chosen by the caller.
package callback

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"asyncimage/internal/codec"
)

// Listener receives the outcome of one load. bmp is nil when nothing could be loaded.
type Listener func(url string, bmp *codec.Bitmap)

// Executor runs posted tasks on some designated context. Post must not block.
type Executor interface {
	Post(task func())
}

// ExecutorFunc adapts a posting function, such as a toolkit's run-on-main-thread hook.
type ExecutorFunc func(task func())

func (f ExecutorFunc) Post(task func()) {
	f(task)
}

// Inline runs tasks on the posting goroutine.
type Inline struct{}

func (Inline) Post(task func()) {
	task()
}

// Loop runs posted tasks one at a time, in order, on a single goroutine it owns.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	running atomic.Bool
	logger  *zap.Logger
}

func NewLoop(logger *zap.Logger) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l
}

// Post queues task. Tasks posted after Close are dropped.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Debug("Dropping task posted to closed loop")
		return
	}
	l.tasks = append(l.tasks, task)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	l.mu.Unlock()
}

// Close runs the tasks already posted and then stops the loop goroutine.
// When a task is running, as when a task closes its own loop, Close returns
// without waiting and the goroutine exits after the remaining tasks.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.wake)
	}
	l.mu.Unlock()
	if l.running.Load() {
		return
	}
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		_, ok := <-l.wake
		for {
			task, more := l.next()
			if !more {
				break
			}
			l.runTask(task)
		}
		if !ok {
			return
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	task := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return task, true
}

func (l *Loop) runTask(task func()) {
	l.running.Store(true)
	defer l.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Listener panicked", zap.Any("panic", r))
		}
	}()
	task()
}

// Bridge hands finished loads to an Executor.
type Bridge struct {
	executor Executor
	logger   *zap.Logger
}

func NewBridge(executor Executor, logger *zap.Logger) *Bridge {
	return &Bridge{
		executor: executor,
		logger:   logger,
	}
}

// Deliver posts one task that invokes every listener with (url, bmp) and returns without waiting.
func (b *Bridge) Deliver(url string, bmp *codec.Bitmap, listeners []Listener) {
	if len(listeners) == 0 {
		return
	}

	b.executor.Post(func() {
		for _, listener := range listeners {
			if listener != nil {
				listener(url, bmp)
			}
		}
	})
}
