package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/eventrouter"
	"github.com/mantlecore/agentcore/logging"
	"github.com/mantlecore/agentcore/store"
)

// recordingRunner counts invocations and can be made to fail a fixed
// number of times before succeeding, or to always fail.
type recordingRunner struct {
	mu        sync.Mutex
	calls     []string
	failUntil int
}

func (r *recordingRunner) Run(ctx context.Context, agentID, sessionID, query string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, query)
	if len(r.calls) <= r.failUntil {
		return "", core.NewError(core.ErrInternal, "simulated failure")
	}
	return "ok: " + query, nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestEventRouter() (*eventrouter.Router, *store.MemoryStreamStore) {
	backend := store.NewMemoryStreamStore()
	return eventrouter.New("memory", backend, eventrouter.DropNewest, 16, logging.NoOpLogger{}), backend
}

func TestManager_Create_FiresOnIntervalAndDrainsSerially(t *testing.T) {
	runner := &recordingRunner{}
	events, _ := newTestEventRouter()
	mgr := NewManager(runner, events, logging.NoOpLogger{})

	err := mgr.Create(TaskConfig{
		AgentID:  "agent-1",
		Query:    StaticQuery("status check"),
		Interval: 15 * time.Millisecond,
		QueueSize: 4,
	})
	require.NoError(t, err)
	defer mgr.Shutdown(time.Second)

	require.Eventually(t, func() bool { return runner.count() >= 2 }, 500*time.Millisecond, 5*time.Millisecond)

	state, err := mgr.State("agent-1")
	require.NoError(t, err)
	assert.Contains(t, []AgentState{StateScheduled, StateRunning}, state)
}

func TestManager_Pause_StopsFiringUntilResumed(t *testing.T) {
	runner := &recordingRunner{}
	mgr := NewManager(runner, nil, logging.NoOpLogger{})

	require.NoError(t, mgr.Create(TaskConfig{
		AgentID:  "agent-2",
		Query:    StaticQuery("poll"),
		Interval: 15 * time.Millisecond,
	}))
	defer mgr.Shutdown(time.Second)

	require.Eventually(t, func() bool { return runner.count() >= 1 }, 500*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, mgr.Pause("agent-2"))
	state, err := mgr.State("agent-2")
	require.NoError(t, err)
	assert.Equal(t, StatePaused, state)

	paused := runner.count()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, paused, runner.count(), "no new calls should occur while paused")

	require.NoError(t, mgr.Resume("agent-2"))
	require.Eventually(t, func() bool { return runner.count() > paused }, 500*time.Millisecond, 5*time.Millisecond)
}

func TestManager_Stop_DrainsThenRejectsNewTicks(t *testing.T) {
	runner := &recordingRunner{}
	mgr := NewManager(runner, nil, logging.NoOpLogger{})

	require.NoError(t, mgr.Create(TaskConfig{
		AgentID:  "agent-3",
		Query:    StaticQuery("once"),
		Interval: 10 * time.Millisecond,
	}))

	require.Eventually(t, func() bool { return runner.count() >= 1 }, 500*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, mgr.Stop("agent-3"))

	stopped := runner.count()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, runner.count(), "no further ticks should fire after stop")
}

func TestManager_Delete_RemovesAgentFromRegistry(t *testing.T) {
	runner := &recordingRunner{}
	mgr := NewManager(runner, nil, logging.NoOpLogger{})

	require.NoError(t, mgr.Create(TaskConfig{AgentID: "agent-4", Query: StaticQuery("x"), Interval: time.Hour}))
	require.NoError(t, mgr.Delete("agent-4"))

	_, err := mgr.State("agent-4")
	assert.Error(t, err)
}

func TestManager_RetriesOnFailureUpToMaxRetries(t *testing.T) {
	runner := &recordingRunner{failUntil: 2} // first two attempts fail, third succeeds
	mgr := NewManager(runner, nil, logging.NoOpLogger{})

	require.NoError(t, mgr.Create(TaskConfig{
		AgentID:    "agent-5",
		Query:      StaticQuery("flaky"),
		Interval:   50 * time.Millisecond, // the first tick's three attempts finish long before the second tick fires
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}))
	defer mgr.Shutdown(time.Second)

	require.Eventually(t, func() bool { return runner.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestManager_ExhaustsRetriesAndEmitsTaskFailed(t *testing.T) {
	runner := &recordingRunner{failUntil: 100}
	events, backend := newTestEventRouter()
	mgr := NewManager(runner, events, logging.NoOpLogger{})

	require.NoError(t, mgr.Create(TaskConfig{
		AgentID:    "agent-6",
		SessionID:  "sess-6",
		Query:      StaticQuery("always fails"),
		Interval:   50 * time.Millisecond,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}))
	defer mgr.Shutdown(time.Second)

	require.Eventually(t, func() bool { return runner.count() == 2 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		evs, err := backend.Read("sess-6", "", 0)
		return err == nil && len(evs) > 0
	}, time.Second, 5*time.Millisecond)

	evs, err := backend.Read("sess-6", "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, core.EventTaskFailed, evs[len(evs)-1].Type)
}

func TestManager_QueueOverflowDropsTaskAndRecordsEvent(t *testing.T) {
	blocking := &blockingRunner{release: make(chan struct{})}
	events, backend := newTestEventRouter()
	mgr := NewManager(blocking, events, logging.NoOpLogger{})

	require.NoError(t, mgr.Create(TaskConfig{
		AgentID:   "agent-7",
		SessionID: "sess-7",
		Query:     StaticQuery("overflow me"),
		Interval:  5 * time.Millisecond,
		QueueSize: 1,
	}))
	defer func() {
		close(blocking.release)
		mgr.Shutdown(time.Second)
	}()

	require.Eventually(t, func() bool {
		evs, err := backend.Read("sess-7", "", 0)
		return err == nil && len(evs) > 0
	}, 2*time.Second, 5*time.Millisecond)

	evs, err := backend.Read("sess-7", "", 0)
	require.NoError(t, err)
	var sawOverflow bool
	for _, ev := range evs {
		if ev.Type == core.EventQueueOverflow {
			sawOverflow = true
		}
	}
	assert.True(t, sawOverflow)
}

// blockingRunner never returns until release is closed, so its worker's
// single-slot queue fills up and the next tick overflows.
type blockingRunner struct {
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, agentID, sessionID, query string) (string, error) {
	select {
	case <-b.release:
		return "released", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
