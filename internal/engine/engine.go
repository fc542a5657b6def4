package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
	"outreach_engine/internal/notify"
)

var (
	ErrStopped       = errors.New("engine is stopped")
	ErrTaskNotActive = errors.New("task is not active")
)

// Store persists tasks. MarkTerminal is handed to the orchestrator as its reporter.
type Store interface {
	campaign.TaskReporter
	CreateTask(ctx context.Context, kind model.TaskKind, payload model.TaskPayload) (model.Task, error)
}

// Metrics is the recorder the engine and every campaign report to.
type Metrics interface {
	campaign.Recorder
	CampaignStarted(kind model.TaskKind) func()
}

type Options struct {
	Store    Store
	Opener   campaign.Opener
	Content  campaign.ContentSource
	Bus      *logbus.Bus
	Metrics  Metrics
	Notifier notify.Notifier
	Limits   config.LimitsConfig
	Settings campaign.Settings
	// Sleep is passed to every campaign; nil uses real timers.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Request struct {
	Kind        model.TaskKind
	Credentials campaign.Credentials
	Keyword     string
	Budget      int
	Topic       string
	Industry    string
	SkipPost    bool
}

func (r Request) validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown task kind %q", r.Kind)
	}
	if strings.TrimSpace(r.Credentials.Email) == "" {
		return errors.New("email is required")
	}
	if r.Credentials.Password == "" {
		return errors.New("password is required")
	}
	if r.Budget < 0 {
		return errors.New("budget must not be negative")
	}
	return nil
}

func (r Request) payload() model.TaskPayload {
	return model.TaskPayload{
		Email:    strings.TrimSpace(r.Credentials.Email),
		Keyword:  strings.TrimSpace(r.Keyword),
		Budget:   r.Budget,
		Topic:    strings.TrimSpace(r.Topic),
		Industry: strings.TrimSpace(r.Industry),
		SkipPost: r.SkipPost,
	}
}

// Engine runs submitted tasks, each in its own goroutine with its own browser session,
// at most Limits.MaxConcurrentCampaigns at a time.
type Engine struct {
	store    Store
	bus      *logbus.Bus
	metrics  Metrics
	notifier notify.Notifier
	orch     *campaign.Orchestrator

	limit int
	slots *semaphore.Weighted

	mu      sync.Mutex
	stopped bool
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	states  map[string]*model.TaskState
	cancels map[string]context.CancelFunc
}

func New(opts Options) *Engine {
	limit := opts.Limits.MaxConcurrentCampaigns
	if limit <= 0 {
		limit = 2
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	baseCtx, stop := context.WithCancel(context.Background())
	e := &Engine{
		store:    opts.Store,
		bus:      opts.Bus,
		metrics:  metrics,
		notifier: opts.Notifier,
		limit:    limit,
		slots:    semaphore.NewWeighted(int64(limit)),
		baseCtx:  baseCtx,
		stop:     stop,
		states:   make(map[string]*model.TaskState),
		cancels:  make(map[string]context.CancelFunc),
	}
	e.orch = campaign.NewOrchestrator(campaign.Options{
		Opener:   opts.Opener,
		Content:  opts.Content,
		Reporter: opts.Store,
		Bus:      opts.Bus,
		Metrics:  metrics,
		Limiter:  campaign.NewActionLimiter(opts.Limits),
		Settings: opts.Settings,
		Sleep:    opts.Sleep,
	})
	return e
}

// Submit stores a running task and starts it. The password is only held by the run.
func (e *Engine) Submit(ctx context.Context, req Request) (model.Task, error) {
	if err := req.validate(); err != nil {
		return model.Task{}, err
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return model.Task{}, ErrStopped
	}
	e.mu.Unlock()

	task, err := e.store.CreateTask(ctx, req.Kind, req.payload())
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}

	spec := campaign.RunSpec{
		TaskID:      task.ID,
		Kind:        req.Kind,
		Credentials: req.Credentials,
		Budget:      req.Budget,
		Keyword:     task.Payload.Keyword,
		Topic:       task.Payload.Topic,
		Industry:    task.Payload.Industry,
		SkipPost:    req.SkipPost,
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		e.markTerminal(task.ID, model.TaskError, "engine stopped before start")
		return model.Task{}, ErrStopped
	}
	taskCtx, cancel := context.WithCancel(e.baseCtx)
	st := &model.TaskState{TaskID: task.ID, Kind: task.Kind, Status: model.TaskRunning, StartedMs: time.Now().UnixMilli()}
	e.states[task.ID] = st
	e.cancels[task.ID] = cancel
	e.publishStateLocked(*st)
	e.wg.Add(1)
	e.mu.Unlock()

	go e.runTask(taskCtx, task, spec)

	e.log("info", "task submitted", map[string]any{"task": task.ID, "kind": string(task.Kind)})
	return task, nil
}

func (e *Engine) runTask(ctx context.Context, task model.Task, spec campaign.RunSpec) {
	defer e.wg.Done()
	defer e.forget(task.ID)

	if err := e.slots.Acquire(ctx, 1); err != nil {
		e.abortQueued(task.ID)
		return
	}
	defer e.slots.Release(1)
	if ctx.Err() != nil {
		e.abortQueued(task.ID)
		return
	}

	e.mu.Lock()
	if st := e.states[task.ID]; st != nil {
		st.Running = true
		st.StartedMs = time.Now().UnixMilli()
		e.publishStateLocked(*st)
	}
	e.mu.Unlock()

	done := e.metrics.CampaignStarted(task.Kind)
	result := e.orch.Run(ctx, spec)
	done()

	status := model.TaskCompleted
	lastErr := ""
	if result.Status.Aborted() {
		status = model.TaskError
		lastErr = result.Error
	}
	e.finishState(task.ID, status, lastErr)

	if e.notifier != nil {
		e.notifier.NotifyCampaignFinished(context.WithoutCancel(ctx), notify.EventFromResult(task, campaign.Summary(task.Kind, result), result))
	}
}

func (e *Engine) abortQueued(taskID string) {
	const msg = "cancelled before start"
	e.markTerminal(taskID, model.TaskError, msg)
	e.finishState(taskID, model.TaskError, msg)
	e.log("info", "queued task cancelled", map[string]any{"task": taskID})
}

func (e *Engine) markTerminal(taskID string, status model.TaskStatus, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.store.MarkTerminal(ctx, taskID, status, msg, nil); err != nil {
		e.log("error", "mark task terminal failed", map[string]any{"task": taskID, "error": err.Error()})
	}
}

func (e *Engine) finishState(taskID string, status model.TaskStatus, lastErr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[taskID]
	if st == nil {
		return
	}
	st.Running = false
	st.Status = status
	st.LastError = lastErr
	e.publishStateLocked(*st)
}

func (e *Engine) forget(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel := e.cancels[taskID]; cancel != nil {
		cancel()
	}
	delete(e.cancels, taskID)
	delete(e.states, taskID)
}

// Cancel stops one task. Its session is released by the run itself.
func (e *Engine) Cancel(taskID string) error {
	e.mu.Lock()
	cancel := e.cancels[taskID]
	e.mu.Unlock()
	if cancel == nil {
		return ErrTaskNotActive
	}
	cancel()
	e.log("info", "task cancel requested", map[string]any{"task": taskID})
	return nil
}

// StopAll cancels every active task and waits for them to finish. The engine keeps accepting work.
func (e *Engine) StopAll(ctx context.Context) error {
	e.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(e.cancels))
	for _, cancel := range e.cancels {
		cancels = append(cancels, cancel)
	}
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if err := e.wait(ctx); err != nil {
		return err
	}
	if len(cancels) > 0 {
		e.log("info", "all tasks stopped", map[string]any{"count": len(cancels)})
	}
	return nil
}

// Close rejects new tasks, cancels the running ones and waits for them.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.stop()
	return e.wait(ctx)
}

func (e *Engine) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) State() model.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := model.EngineState{Limit: e.limit, Tasks: make([]model.TaskState, 0, len(e.states))}
	for _, st := range e.states {
		if st.Running {
			out.Running++
		}
		out.Tasks = append(out.Tasks, *st)
	}
	sort.Slice(out.Tasks, func(i, j int) bool {
		if out.Tasks[i].StartedMs != out.Tasks[j].StartedMs {
			return out.Tasks[i].StartedMs < out.Tasks[j].StartedMs
		}
		return out.Tasks[i].TaskID < out.Tasks[j].TaskID
	})
	return out
}

func (e *Engine) publishStateLocked(st model.TaskState) {
	if e.bus != nil {
		e.bus.Publish(logbus.TypeTask, st)
	}
}

func (e *Engine) log(level, msg string, fields map[string]any) {
	if e.bus != nil {
		e.bus.Log(level, msg, fields)
	}
}

type nopMetrics struct{}

func (nopMetrics) ActionAttempted(campaign.Kind, campaign.Outcome)            {}
func (nopMetrics) PostPublished(bool)                                         {}
func (nopMetrics) ReplySent()                                                 {}
func (nopMetrics) CampaignFinished(model.TaskKind, model.CampaignStatus, int) {}
func (nopMetrics) CampaignStarted(model.TaskKind) func()                      { return func() {} }
