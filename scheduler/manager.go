package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/logging"
)

// DefaultShutdownGrace is how long Shutdown waits for each worker to
// drain its queue and exit before moving on (spec §4.9).
const DefaultShutdownGrace = 30 * time.Second

// Manager is the BackgroundManager: one worker per agent, each draining
// its own bounded task queue (spec §4.9).
type Manager struct {
	runner  TaskRunner
	emitter core.EventEmitter
	logger  logging.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

// NewManager constructs a Manager. runner is required; emitter and logger
// are optional and default to no-ops.
func NewManager(runner TaskRunner, emitter core.EventEmitter, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Manager{
		runner:  runner,
		emitter: emitter,
		logger:  logger,
		workers: make(map[string]*worker),
	}
}

// Create registers a background task for cfg.AgentID and starts it
// immediately (spec §4.9: "create → scheduled"). Only one background task
// per agent ID may be active at a time; Create on an existing agent ID
// replaces it.
func (m *Manager) Create(cfg TaskConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	w, err := newWorker(cfg, m.runner, m.emitter, m.logger)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if existing, ok := m.workers[cfg.AgentID]; ok {
		existing.stop()
	}
	m.workers[cfg.AgentID] = w
	m.mu.Unlock()

	w.start()
	return nil
}

// Pause suspends an agent's ticker without draining its queue.
func (m *Manager) Pause(agentID string) error {
	w, err := m.lookup(agentID)
	if err != nil {
		return err
	}
	w.pause()
	return nil
}

// Resume reactivates a paused agent's ticker.
func (m *Manager) Resume(agentID string) error {
	w, err := m.lookup(agentID)
	if err != nil {
		return err
	}
	w.resume()
	return nil
}

// Stop cancels an agent's ticker and blocks until its queue has drained.
func (m *Manager) Stop(agentID string) error {
	w, err := m.lookup(agentID)
	if err != nil {
		return err
	}
	w.stop()
	return nil
}

// Delete stops an agent's worker (if running) and removes it from the
// manager (spec §4.9: "delete → stopped → removed").
func (m *Manager) Delete(agentID string) error {
	w, err := m.lookup(agentID)
	if err != nil {
		return err
	}
	w.stop()
	w.setState(StateDeleted)

	m.mu.Lock()
	delete(m.workers, agentID)
	m.mu.Unlock()
	return nil
}

// State reports an agent's current lifecycle state.
func (m *Manager) State(agentID string) (AgentState, error) {
	w, err := m.lookup(agentID)
	if err != nil {
		return "", err
	}
	return w.State(), nil
}

func (m *Manager) lookup(agentID string) (*worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[agentID]
	if !ok {
		return nil, fmt.Errorf("scheduler: no background task registered for agent %q", agentID)
	}
	return w, nil
}

// Shutdown stops every worker and waits up to grace for each one to drain
// its queue and exit. A worker still busy when grace elapses is logged as
// scheduler.shutdown_grace_exceeded and left to finish on its own: its
// in-flight and queued tasks are not cancelled. grace <= 0 uses
// DefaultShutdownGrace.
func (m *Manager) Shutdown(grace time.Duration) {
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}

	m.mu.Lock()
	workers := make([]*worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.workers = make(map[string]*worker)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			done := make(chan struct{})
			go func() {
				w.stop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(grace):
				m.logger.Warn("scheduler.shutdown_grace_exceeded", "agent_id", w.agentID)
			}
		}(w)
	}
	wg.Wait()
}
