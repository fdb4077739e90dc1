package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth/api/internal/model"
)

func TestHubDeliversToJobSubscribers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	watcher := &Client{JobID: "job-1", Send: make(chan []byte, 4)}
	other := &Client{JobID: "job-2", Send: make(chan []byte, 4)}
	hub.Register(watcher)
	hub.Register(other)

	hub.BroadcastProgress("job-1", model.Progress{
		Status: model.JobStatusProgress, Current: 1000, Total: 2500, CompletedChunks: 1,
		Message: "Generated 1000/2500 records (1/3 chunks)",
	})

	select {
	case data := <-watcher.Send:
		var msg model.JobEvent
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, model.EventProgress, msg.Type)
		assert.Equal(t, "job-1", msg.JobID)
		require.NotNil(t, msg.Progress)
		assert.Equal(t, 1000, msg.Progress.Current)
		assert.Equal(t, 1, msg.Progress.CompletedChunks)
	case <-time.After(time.Second):
		t.Fatal("no progress message delivered")
	}

	select {
	case <-other.Send:
		t.Fatal("message leaked to another job")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	c := &Client{JobID: "job-1", Send: make(chan []byte, 1)}
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.Subscribers("job-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(c)
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers("job-1"))
}

func TestProgressNeverBlocksWithoutRunLoop(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.BroadcastProgress("job-1", model.Progress{Current: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked")
	}
}

func TestLateSubscriberGetsLastProgress(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	watcher := &Client{JobID: "job-1", Send: make(chan []byte, 4)}
	hub.Register(watcher)

	hub.BroadcastProgress("job-1", model.Progress{Status: model.JobStatusProgress, Current: 500, Total: 2500})
	hub.BroadcastProgress("job-1", model.Progress{Status: model.JobStatusProgress, Current: 1500, Total: 2500})
	drain(t, watcher, 2)

	late := &Client{JobID: "job-1", Send: make(chan []byte, 4)}
	hub.Register(late)

	select {
	case data := <-late.Send:
		var msg model.JobEvent
		require.NoError(t, json.Unmarshal(data, &msg))
		require.NotNil(t, msg.Progress)
		assert.Equal(t, 1500, msg.Progress.Current)
	case <-time.After(time.Second):
		t.Fatal("late subscriber got no snapshot")
	}
}

func TestTerminalEventClearsSnapshot(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	watcher := &Client{JobID: "job-1", Send: make(chan []byte, 4)}
	hub.Register(watcher)

	hub.BroadcastProgress("job-1", model.Progress{Current: 10})
	hub.BroadcastComplete("job-1", map[string]int{"records_generated": 10})
	drain(t, watcher, 2)

	late := &Client{JobID: "job-1", Send: make(chan []byte, 1)}
	hub.Register(late)
	assert.Eventually(t, func() bool { return hub.Subscribers("job-1") == 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, late.Send)
}

func TestBroadcastErrorCarriesDetail(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	watcher := &Client{JobID: "job-1", Send: make(chan []byte, 1)}
	hub.Register(watcher)
	hub.BroadcastError("job-1", "GENERATION_FAILED", "unsupported field type")

	select {
	case data := <-watcher.Send:
		var msg model.JobEvent
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, model.EventError, msg.Type)
		assert.True(t, msg.Terminal())
		require.NotNil(t, msg.Error)
		assert.Equal(t, model.EventErrorDetail{Code: "GENERATION_FAILED", Message: "unsupported field type"}, *msg.Error)
	case <-time.After(time.Second):
		t.Fatal("no error event delivered")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	slow := &Client{JobID: "job-1", Send: make(chan []byte)}
	hub.Register(slow)
	hub.BroadcastError("job-1", "GENERATION_FAILED", "boom")

	assert.Eventually(t, func() bool { return hub.Subscribers("job-1") == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-slow.Send
	assert.False(t, ok)
}

func TestTerminalEventWaitsForFullQueue(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	watcher := &Client{JobID: "job-1", Send: make(chan []byte, 4)}
	hub.Register(watcher)

	// Stall the run loop and overflow the queue with another job's progress.
	hub.mu.Lock()
	for i := 0; i < 300; i++ {
		hub.BroadcastProgress("job-2", model.Progress{Current: i})
	}

	done := make(chan struct{})
	go func() {
		hub.BroadcastComplete("job-1", map[string]int{"records_generated": 10})
		close(done)
	}()

	select {
	case <-done:
		hub.mu.Unlock()
		t.Fatal("complete event did not wait for the full queue")
	case <-time.After(50 * time.Millisecond):
	}
	hub.mu.Unlock()

	select {
	case data := <-watcher.Send:
		var msg model.JobEvent
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, model.EventComplete, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("complete event was dropped")
	}
	<-done
}

func TestTerminalEventGivesUpWithoutRunLoop(t *testing.T) {
	hub := NewHub(nil)
	hub.terminalWait = 20 * time.Millisecond
	for i := 0; i < 256; i++ {
		hub.BroadcastProgress("job-1", model.Progress{Current: i})
	}

	done := make(chan struct{})
	go func() {
		hub.BroadcastError("job-1", "GENERATION_FAILED", "boom")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("terminal broadcast blocked past its wait")
	}
}

func drain(t *testing.T, c *Client, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.Send:
		case <-time.After(time.Second):
			t.Fatalf("expected %d events, got %d", n, i)
		}
	}
}
