package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/logging"
)

// TaskRunner executes one resolved query against a live agent and returns
// its final answer. AgentCore implements this; the scheduler only depends
// on the narrow interface to avoid an import cycle, the same pattern
// tool.SubAgentRunner uses for sub-agent delegation.
type TaskRunner interface {
	Run(ctx context.Context, agentID, sessionID, query string) (string, error)
}

// tick is one resolved fire: the query text has already been computed so
// the worker's queue holds ready-to-run work, not unresolved triggers.
type tick struct {
	query   string
	firedAt time.Time
}

// worker drains one agent's bounded task queue serially, firing ticks
// from a ticker or cron schedule, retrying failures up to MaxRetries with
// a fixed delay (spec §4.9).
type worker struct {
	agentID string
	cfg     TaskConfig
	runner  TaskRunner
	trig    *trigger
	emitter core.EventEmitter
	logger  logging.Logger

	queue chan tick

	mu    sync.Mutex
	state AgentState

	pauseCh  chan struct{}
	resumeCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newWorker(cfg TaskConfig, runner TaskRunner, emitter core.EventEmitter, logger logging.Logger) (*worker, error) {
	trig, err := newTrigger(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithComponent("scheduler").WithContext("agent_id", cfg.AgentID)
	}
	return &worker{
		agentID:  cfg.AgentID,
		cfg:      cfg,
		runner:   runner,
		trig:     trig,
		emitter:  emitter,
		logger:   logger,
		queue:    make(chan tick, cfg.QueueSize),
		state:    StateCreated,
		pauseCh:  make(chan struct{}, 1),
		resumeCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// start launches the ticker loop and the serial drain loop. Both exit
// together when stopCh closes.
func (w *worker) start() {
	w.setState(StateScheduled)
	go w.tickLoop()
	go w.drainLoop()
}

func (w *worker) setState(s AgentState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *worker) State() AgentState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// pause suspends the ticker; the drain loop keeps draining whatever is
// already queued (spec §4.9: "ticker suspended, worker keeps draining").
func (w *worker) pause() {
	w.setState(StatePaused)
	select {
	case w.pauseCh <- struct{}{}:
	default:
	}
}

func (w *worker) resume() {
	w.setState(StateScheduled)
	select {
	case w.resumeCh <- struct{}{}:
	default:
	}
}

// stop cancels the ticker and lets the drain loop finish its current task
// before exiting.
func (w *worker) stop() {
	w.mu.Lock()
	if w.state == StateStopped || w.state == StateDeleted {
		w.mu.Unlock()
		return
	}
	w.state = StateStopped
	w.mu.Unlock()
	close(w.stopCh)
	<-w.doneCh
}

// tickLoop computes successive fire times and enqueues a resolved query at
// each one, skipping enqueue entirely while paused rather than buffering
// behind the pause.
func (w *worker) tickLoop() {
	next := w.trig.next(time.Now())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	paused := false
	for {
		select {
		case <-w.stopCh:
			return
		case <-w.pauseCh:
			paused = true
		case <-w.resumeCh:
			paused = false
			next = w.trig.next(time.Now())
			timer.Reset(time.Until(next))
		case <-timer.C:
			if !paused {
				w.enqueue()
			}
			next = w.trig.next(time.Now())
			timer.Reset(time.Until(next))
		}
	}
}

// enqueue resolves the task's query and submits it to the bounded queue,
// dropping and recording queue_overflow if the queue is full (spec §4.9).
func (w *worker) enqueue() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()

	query, err := w.cfg.Query(ctx)
	if err != nil {
		w.logger.Warn("scheduler.query_resolve_failed", "error", err.Error())
		return
	}

	select {
	case w.queue <- tick{query: query, firedAt: time.Now()}:
	default:
		w.logger.Warn("scheduler.queue_overflow")
		w.emit(core.EventQueueOverflow, map[string]any{"agent_id": w.agentID})
	}
}

// drainLoop runs queued ticks one at a time; it keeps draining after stop
// until the queue empties, then exits.
func (w *worker) drainLoop() {
	defer close(w.doneCh)
	for {
		select {
		case t := <-w.queue:
			w.runWithRetry(t)
		case <-w.stopCh:
			for {
				select {
				case t := <-w.queue:
					w.runWithRetry(t)
				default:
					return
				}
			}
		}
	}
}

// runWithRetry executes t.query up to MaxRetries+1 times with a fixed
// delay between attempts, recording a task_failed event once retries are
// exhausted (spec §4.9, §7 "background task errors honor max_retries").
func (w *worker) runWithRetry(t tick) {
	// Mark the worker running for the task and restore its prior state
	// afterwards, unless pause, resume or stop changed it meanwhile; a
	// stopped worker draining its queue stays stopped.
	w.mu.Lock()
	prev := w.state
	if prev == StateScheduled || prev == StatePaused {
		w.state = StateRunning
	}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		if w.state == StateRunning {
			w.state = prev
		}
		w.mu.Unlock()
	}()

	attempts := w.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
		_, err := w.runner.Run(ctx, w.agentID, w.cfg.SessionID, t.query)
		timedOut := ctx.Err() == context.DeadlineExceeded
		cancel()
		if err == nil {
			return
		}
		lastErr = err

		kind := "tool_error"
		if timedOut {
			kind = "tool_timeout"
		}
		w.logger.Warn("scheduler.task_attempt_failed", "attempt", attempt, "kind", kind, "error", err.Error())

		if attempt < attempts && w.cfg.RetryDelay > 0 {
			time.Sleep(w.cfg.RetryDelay)
		}
	}

	w.logger.Error("scheduler.task_failed", "error", lastErr.Error())
	w.emit(core.EventTaskFailed, map[string]any{"agent_id": w.agentID, "error": lastErr.Error()})
}

func (w *worker) emit(typ core.EventType, payload map[string]any) {
	if w.emitter == nil {
		return
	}
	ev := core.NewEvent(w.cfg.SessionID, w.agentID, typ, time.Now(), payload)
	_, _ = w.emitter.Emit(ev)
}
