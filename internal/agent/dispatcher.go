package agent

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
)

var (
	// ErrDispatcherStopped is returned for requests that arrive after Stop.
	ErrDispatcherStopped = errors.New("dispatcher is stopped")

	// ErrQueueFull is returned when a session already has too many pending requests.
	ErrQueueFull = errors.New("session queue is full")
)

const (
	shardCount = 16

	defaultInboxSize   = 16
	defaultIdleTimeout = 10 * time.Minute
)

type task struct {
	ctx  context.Context
	exec func(ctx context.Context, a *Agent) error
	err  error
	done chan struct{}
}

// actor serializes the requests of one session on its own goroutine.
type actor struct {
	agent   *Agent
	inbox   chan *task
	pending int // queued or running tasks, guarded by the shard mutex
	done    chan struct{}
}

type shard struct {
	mu     sync.Mutex
	actors map[string]*actor
}

// Dispatcher routes requests to per-session agents. Requests for one session
// run one at a time in arrival order; different sessions run concurrently.
type Dispatcher struct {
	svc         *Services
	shards      [shardCount]*shard
	inboxSize   int
	idleTimeout time.Duration

	mu       sync.RWMutex // guards closed
	closed   bool
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. Actors are started lazily on the first
// request for a session and retire after the configured idle timeout.
func NewDispatcher(svc *Services) *Dispatcher {
	if svc == nil {
		panic("agent services cannot be nil")
	}
	d := &Dispatcher{
		svc:         svc,
		inboxSize:   svc.cfg.InboxSize,
		idleTimeout: svc.cfg.IdleTimeout,
		quit:        make(chan struct{}),
		logger:      svc.logger,
	}
	if d.inboxSize <= 0 {
		d.inboxSize = defaultInboxSize
	}
	if d.idleTimeout <= 0 {
		d.idleTimeout = defaultIdleTimeout
	}
	for i := range d.shards {
		d.shards[i] = &shard{actors: make(map[string]*actor)}
	}
	return d
}

// Review queues a review on the session's agent and waits for its result.
func (d *Dispatcher) Review(ctx context.Context, req core.ReviewRequest) (*core.ReviewResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var result *core.ReviewResult
	err := d.submit(ctx, req.SessionID, func(ctx context.Context, a *Agent) error {
		var err error
		result, err = a.Review(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Chat queues a chat turn on the session's agent and waits for its result.
func (d *Dispatcher) Chat(ctx context.Context, req core.ChatRequest) (*core.ChatResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var result *core.ChatResult
	err := d.submit(ctx, req.SessionID, func(ctx context.Context, a *Agent) error {
		var err error
		result, err = a.Chat(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ActiveSessions returns the number of sessions with a live actor.
func (d *Dispatcher) ActiveSessions() int {
	n := 0
	for _, sh := range d.shards {
		sh.mu.Lock()
		n += len(sh.actors)
		sh.mu.Unlock()
	}
	return n
}

// Stop rejects new requests and waits until every queued request has finished.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("stopping dispatcher and waiting for sessions to finish")
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.quit)
		d.wg.Wait()
		d.logger.Info("all session work has finished")
	})
}

func (d *Dispatcher) submit(ctx context.Context, sessionID string, exec func(context.Context, *Agent) error) error {
	t := &task{ctx: ctx, exec: exec, done: make(chan struct{})}
	a, err := d.enqueue(sessionID, t)
	if err != nil {
		return err
	}

	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		select {
		case <-t.done:
			return t.err
		default:
			return ErrDispatcherStopped
		}
	}
}

// enqueue hands t to the session's actor without blocking. Holding the read
// lock until the task is queued guarantees Stop sees it in the inbox.
func (d *Dispatcher) enqueue(sessionID string, t *task) (*actor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrDispatcherStopped
	}

	sh := d.shardFor(sessionID)
	sh.mu.Lock()
	a, ok := sh.actors[sessionID]
	if !ok {
		a = &actor{
			agent: NewAgent(d.svc, sessionID),
			inbox: make(chan *task, d.inboxSize),
			done:  make(chan struct{}),
		}
		sh.actors[sessionID] = a
		d.wg.Add(1)
		go d.run(sh, a)
	}
	a.pending++
	sh.mu.Unlock()

	select {
	case a.inbox <- t:
		return a, nil
	default:
		d.release(sh, a)
		d.logger.Warn("session queue is full, rejecting request", "session_id", sessionID, "inbox_size", d.inboxSize)
		return nil, fmt.Errorf("%w: session %s", ErrQueueFull, sessionID)
	}
}

func (d *Dispatcher) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return d.shards[h.Sum32()%shardCount]
}

func (d *Dispatcher) release(sh *shard, a *actor) {
	sh.mu.Lock()
	a.pending--
	sh.mu.Unlock()
}

// run drains the actor's inbox until it has been idle long enough to retire
// or the dispatcher stops.
func (d *Dispatcher) run(sh *shard, a *actor) {
	defer d.wg.Done()
	defer close(a.done)

	sessionID := a.agent.SessionID()
	d.logger.Debug("starting session actor", "session_id", sessionID)

	idle := time.NewTimer(d.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case t := <-a.inbox:
			d.execute(sh, a, t)
			idle.Reset(d.idleTimeout)

		case <-idle.C:
			if d.retire(sh, a) {
				d.logger.Debug("retiring idle session actor", "session_id", sessionID)
				return
			}
			idle.Reset(d.idleTimeout)

		case <-d.quit:
			for {
				select {
				case t := <-a.inbox:
					d.execute(sh, a, t)
				default:
					d.retire(sh, a)
					d.logger.Debug("session actor stopped", "session_id", sessionID)
					return
				}
			}
		}
	}
}

// retire removes an actor that has no pending work from the registry.
func (d *Dispatcher) retire(sh *shard, a *actor) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if a.pending > 0 {
		return false
	}
	sessionID := a.agent.SessionID()
	if sh.actors[sessionID] == a {
		delete(sh.actors, sessionID)
	}
	return true
}

func (d *Dispatcher) execute(sh *shard, a *actor, t *task) {
	defer d.release(sh, a)
	defer close(t.done)

	if err := t.ctx.Err(); err != nil {
		t.err = err
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("session actor recovered from panic", "session_id", a.agent.SessionID(), "panic", r)
			t.err = fmt.Errorf("agent panicked: %v", r)
		}
	}()

	ctx := logger.WithLogFields(t.ctx, logger.LogFields{SessionID: a.agent.SessionID()})
	t.err = t.exec(ctx, a.agent)
}
