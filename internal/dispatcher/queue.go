package dispatcher

import (
	"sync"

	"asyncimage/internal/callback"
)

// Request is one pending load. Requests are identified by URL alone.
type Request struct {
	ID        string
	URL       string
	Width     int
	Height    int
	Force     bool
	Listeners []callback.Listener
}

// Sampled reports whether the request asks for a sub-sampled bitmap. Only
// full-resolution results go to the memory tier, which is keyed by URL.
func (r *Request) Sampled() bool {
	return r.Width > 0 && r.Height > 0
}

// Queue is a FIFO of pending requests, deduplicated by URL. It is safe for
// concurrent producers; Enqueue never blocks.
type Queue struct {
	mu    sync.Mutex
	items []*Request
	index map[string]*Request
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		index: make(map[string]*Request),
		wake:  make(chan struct{}, 1),
	}
}

// Enqueue appends req and wakes the worker, unless a request for the same URL
// is already queued. In that case the queued request keeps its position and
// size/force settings and only gains req's listeners. It reports whether a new
// entry was created.
func (q *Queue) Enqueue(req *Request) bool {
	q.mu.Lock()
	if queued, ok := q.index[req.URL]; ok {
		queued.Listeners = append(queued.Listeners, req.Listeners...)
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, req)
	q.index[req.URL] = req
	q.mu.Unlock()

	q.Wake()
	return true
}

// Wake signals the worker. Signals coalesce.
func (q *Queue) Wake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes the oldest request.
func (q *Queue) Pop() (*Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.index, req.URL)
	return req, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue) signal() <-chan struct{} {
	return q.wake
}
