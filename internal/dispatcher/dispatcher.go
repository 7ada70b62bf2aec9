// Package dispatcher drains the request queue on a single background worker.
package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"asyncimage/internal/callback"
	"asyncimage/internal/codec"
)

type State int32

const (
	StateIdle State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Resolver interface {
	Resolve(ctx context.Context, url string, width, height int, force bool) (*codec.Bitmap, error)
}

type Deliverer interface {
	Deliver(url string, bmp *codec.Bitmap, listeners []callback.Listener)
}

// MemoryStore receives successful resolutions when memory population is on.
type MemoryStore interface {
	Store(url string, bmp *codec.Bitmap)
}

// Dispatcher owns the one worker goroutine of a loader. All resolutions for
// that loader run serially on it.
type Dispatcher struct {
	queue    *Queue
	resolver Resolver
	bridge   Deliverer
	memory   MemoryStore
	logger   *zap.Logger

	state      atomic.Int32
	delivering atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once
}

// New creates a dispatcher. memory may be nil.
func New(queue *Queue, resolver Resolver, bridge Deliverer, memory MemoryStore, logger *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:    queue,
		resolver: resolver,
		bridge:   bridge,
		memory:   memory,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Stop cancels any in-flight resolution and waits for the worker to exit.
// Queued requests are left undrained and their listeners never run. Stop
// called while the worker is delivering, such as from a listener run by an
// inline executor, does not wait: the worker exits once delivery returns.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		started := true
		d.startOnce.Do(func() {
			started = false
			d.state.Store(int32(StateStopped))
			close(d.done)
		})
		if started && !d.delivering.Load() {
			<-d.done
		}
	})
}

func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

func (d *Dispatcher) run() {
	defer close(d.done)
	defer d.state.Store(int32(StateStopped))

	for {
		d.drain()
		if d.ctx.Err() != nil {
			return
		}

		d.state.Store(int32(StateIdle))
		select {
		case <-d.ctx.Done():
			return
		case <-d.queue.signal():
		}
	}
}

func (d *Dispatcher) drain() {
	for d.ctx.Err() == nil {
		req, ok := d.queue.Pop()
		if !ok {
			return
		}
		d.state.Store(int32(StateDraining))
		d.process(req)
	}
}

func (d *Dispatcher) process(req *Request) {
	bmp, err := d.resolver.Resolve(d.ctx, req.URL, req.Width, req.Height, req.Force)
	if d.ctx.Err() != nil {
		d.logger.Debug("Dropping request on shutdown", zap.String("request_id", req.ID), zap.String("url", req.URL))
		return
	}

	if err != nil {
		d.logger.Warn("Failed to load image",
			zap.String("request_id", req.ID),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		bmp = nil
	} else if d.memory != nil && !req.Sampled() {
		d.memory.Store(req.URL, bmp)
	}

	d.delivering.Store(true)
	defer d.delivering.Store(false)
	d.bridge.Deliver(req.URL, bmp, req.Listeners)
}
