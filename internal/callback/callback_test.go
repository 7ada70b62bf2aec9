package callback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asyncimage/internal/codec"
)

func TestLoopRunsTasksInOrderOnOneGoroutine(t *testing.T) {
	loop := NewLoop(zap.NewNop())

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		loop.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	loop.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoopSurvivesPanickingTask(t *testing.T) {
	loop := NewLoop(zap.NewNop())
	ran := make(chan struct{})

	loop.Post(func() { panic("boom") })
	loop.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task after panic never ran")
	}
	loop.Close()
}

func TestLoopDropsTasksAfterClose(t *testing.T) {
	loop := NewLoop(zap.NewNop())
	loop.Close()
	loop.Close()

	called := false
	loop.Post(func() { called = true })
	assert.False(t, called)
}

func TestBridgeDeliversToEveryListener(t *testing.T) {
	bridge := NewBridge(Inline{}, zap.NewNop())
	bmp := &codec.Bitmap{}

	var urls []string
	listener := func(url string, got *codec.Bitmap) {
		assert.Same(t, bmp, got)
		urls = append(urls, url)
	}

	bridge.Deliver("u", bmp, []Listener{listener, nil, listener})
	assert.Equal(t, []string{"u", "u"}, urls)
}

func TestBridgePostsOnceThroughExecutor(t *testing.T) {
	posts := 0
	exec := ExecutorFunc(func(task func()) {
		posts++
		task()
	})
	bridge := NewBridge(exec, zap.NewNop())

	calls := 0
	l := func(string, *codec.Bitmap) { calls++ }
	bridge.Deliver("u", nil, []Listener{l, l})
	bridge.Deliver("u", nil, nil)

	assert.Equal(t, 1, posts)
	assert.Equal(t, 2, calls)
}

func TestLoopCloseFromTask(t *testing.T) {
	loop := NewLoop(zap.NewNop())
	closed := make(chan struct{})
	ran := make(chan struct{})

	loop.Post(func() {
		loop.Close()
		close(closed)
	})
	loop.Post(func() { close(ran) })

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close called from a task did not return")
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task posted before Close never ran")
	}
	loop.Close()
}
