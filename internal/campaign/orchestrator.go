package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
)

type Stage string

const (
	StageSetup      Stage = "setup"
	StageLoggedIn   Stage = "logged-in"
	StagePosting    Stage = "posting"
	StageOutreach   Stage = "outreach"
	StageMessaging  Stage = "messaging"
	StageSummarized Stage = "summarized"
	StageAborted    Stage = "aborted"
)

// Settings are the timing and shape parameters of a run.
type Settings struct {
	Categories   []model.CategorySpec
	Budget       int
	MaxPages     int
	AcceptFollow bool
	Rebalance    bool

	Settle       time.Duration
	PaceMin      time.Duration
	PaceMax      time.Duration
	CooldownMin  time.Duration
	CooldownMax  time.Duration
	PageTurn     time.Duration
	ReadyTimeout time.Duration
	ScrollStep   time.Duration
	ConfirmWait  time.Duration

	Industry  string
	FeedURL   string
	SearchURL string
	Messaging ResponderOptions
}

type Options struct {
	Opener   Opener
	Content  ContentSource
	Reporter TaskReporter
	Bus      *logbus.Bus
	Metrics  Recorder
	// Limiter caps clicks across every campaign sharing it. Nil disables the cap.
	Limiter  *rate.Limiter
	Settings Settings
	// Sleep replaces every wait of the run; tests use it to skip real time.
	Sleep func(ctx context.Context, d time.Duration) error
}

type RunSpec struct {
	TaskID      string
	Kind        model.TaskKind
	Credentials Credentials
	Budget      int
	Keyword     string
	Topic       string
	Industry    string
	SkipPost    bool
}

type Orchestrator struct {
	opts Options
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Orchestrator{opts: opts}
}

// run holds the per-campaign components built on one session.
type run struct {
	session   Session
	resolver  *Resolver
	overlays  *Overlays
	pacer     *Pacer
	poster    *Poster
	allocator *Allocator
	responder *Responder
}

// Run executes one task end to end. The session is closed and the task reported exactly once
// on every path, including panics.
func (o *Orchestrator) Run(ctx context.Context, spec RunSpec) (result model.CampaignResult) {
	st := o.opts.Settings
	budget := spec.Budget
	if budget <= 0 {
		budget = st.Budget
	}
	result = model.CampaignResult{Status: model.CampaignCompleted, Budget: budget, StartedAt: time.Now()}
	stage := StageSetup
	o.log("info", "campaign started", map[string]any{"task": spec.TaskID, "kind": string(spec.Kind), "budget": budget})

	var session Session
	var release sync.Once
	defer func() {
		if r := recover(); r != nil {
			result.Status = model.CampaignError
			result.Error = fmt.Sprintf("unexpected failure: %v", r)
			o.log("error", "campaign crashed", map[string]any{"task": spec.TaskID, "stage": string(stage), "error": result.Error})
		}
		if session != nil {
			release.Do(func() {
				if err := session.Close(); err != nil {
					o.log("warn", "session close failed", map[string]any{"task": spec.TaskID, "error": err.Error()})
				}
			})
		}
		result.FinishedAt = time.Now()
		o.finish(spec, stage, result)
	}()

	var err error
	session, err = o.opts.Opener.Open(ctx)
	if err != nil {
		stage = StageAborted
		result.Status = model.CampaignAbortedAtSetup
		result.Error = fmt.Sprintf("open session: %v", err)
		return result
	}
	if session.Page() == nil {
		stage = StageAborted
		result.Status = model.CampaignAbortedAtSetup
		result.Error = "open session: no page attached"
		return result
	}
	r := o.build(session)

	if err := session.Login(ctx, spec.Credentials); err != nil {
		stage = StageAborted
		result.Status = model.CampaignAbortedAtLogin
		result.Error = fmt.Sprintf("login: %v", err)
		return result
	}
	stage = o.enter(spec, StageLoggedIn)

	switch spec.Kind {
	case model.TaskKindPost:
		stage = o.enter(spec, StagePosting)
		result.PostAttempted = true
		if err := o.post(ctx, r, spec); err != nil {
			result.Status = model.CampaignError
			result.Error = fmt.Sprintf("post: %v", err)
		} else {
			result.PostSucceeded = true
		}

	case model.TaskKindMessaging:
		stage = o.enter(spec, StageMessaging)
		result.Replies = r.responder.Run(ctx)

	default:
		if !spec.SkipPost {
			stage = o.enter(spec, StagePosting)
			result.PostAttempted = true
			if err := o.post(ctx, r, spec); err != nil {
				o.log("warn", "posting failed, continuing with outreach", map[string]any{"task": spec.TaskID, "error": err.Error()})
			} else {
				result.PostSucceeded = true
			}
		}
		stage = o.enter(spec, StageOutreach)
		var outreach model.CampaignResult
		if spec.Keyword != "" {
			outreach = r.allocator.RunKeyword(ctx, spec.Keyword, budget)
		} else {
			outreach = r.allocator.Run(ctx, budget)
		}
		result.Status = outreach.Status
		result.Error = outreach.Error
		result.TotalSent = outreach.TotalSent
		result.Categories = outreach.Categories
	}

	stage = o.enter(spec, StageSummarized)
	return result
}

func (o *Orchestrator) build(session Session) *run {
	st := o.opts.Settings
	bus := o.opts.Bus

	res := NewResolver(session.Page(), bus)
	res.sleep = o.opts.Sleep
	overlays := NewOverlays(res)
	pacer := NewPacer(st.PaceMin, st.PaceMax, o.opts.Limiter)
	pacer.sleep = o.opts.Sleep

	accept := Kinds(KindConnect)
	if st.AcceptFollow {
		accept[KindFollow] = struct{}{}
	}
	exec := NewExecutor(res, overlays, pacer, bus, o.opts.Metrics, ExecutorOptions{
		Accept:      accept,
		Settle:      st.Settle,
		ConfirmWait: st.ConfirmWait,
	})
	search := NewSearch(session, NewDiscoverer(res, accept), exec, NewWalker(res, overlays, pacer, st.PageTurn), pacer, bus, SearchOptions{
		SearchURL:    st.SearchURL,
		MaxPages:     st.MaxPages,
		ReadyTimeout: st.ReadyTimeout,
		ScrollStep:   st.ScrollStep,
	})
	return &run{
		session:  session,
		resolver: res,
		overlays: overlays,
		pacer:    pacer,
		poster: NewPoster(session, res, overlays, pacer, bus, PosterOptions{
			FeedURL:      st.FeedURL,
			ReadyTimeout: st.ReadyTimeout,
			Settle:       st.Settle,
		}),
		allocator: NewAllocator(st.Categories, search, pacer, bus, AllocatorOptions{
			CooldownMin: st.CooldownMin,
			CooldownMax: st.CooldownMax,
			Rebalance:   st.Rebalance,
		}),
		responder: NewResponder(session, res, overlays, pacer, o.opts.Content, bus, o.opts.Metrics, st.Messaging),
	}
}

func (o *Orchestrator) post(ctx context.Context, r *run, spec RunSpec) error {
	if o.opts.Content == nil {
		return errors.New("no content source configured")
	}
	industry := spec.Industry
	if industry == "" {
		industry = o.opts.Settings.Industry
	}
	text, err := o.opts.Content.Generate(ctx, industry, spec.Topic)
	if err != nil {
		o.opts.Metrics.PostPublished(false)
		return fmt.Errorf("generate content: %w", err)
	}
	err = r.poster.Publish(ctx, text)
	o.opts.Metrics.PostPublished(err == nil)
	return err
}

func (o *Orchestrator) enter(spec RunSpec, s Stage) Stage {
	o.log("info", "campaign stage", map[string]any{"task": spec.TaskID, "stage": string(s)})
	return s
}

func (o *Orchestrator) finish(spec RunSpec, stage Stage, result model.CampaignResult) {
	summary := Summary(spec.Kind, result)
	level := "info"
	status := model.TaskCompleted
	if result.Status.Aborted() {
		level = "error"
		status = model.TaskError
	}
	o.log(level, "campaign summary", map[string]any{
		"task":          spec.TaskID,
		"kind":          string(spec.Kind),
		"status":        string(result.Status),
		"stage":         string(stage),
		"sent":          result.TotalSent,
		"budget":        result.Budget,
		"postSucceeded": result.PostSucceeded,
		"replies":       result.Replies,
	})
	o.opts.Metrics.CampaignFinished(spec.Kind, result.Status, result.TotalSent)

	if o.opts.Reporter == nil || spec.TaskID == "" {
		return
	}
	// The run context may already be cancelled; the terminal status must still be written.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.opts.Reporter.MarkTerminal(ctx, spec.TaskID, status, summary, &result); err != nil {
		o.log("error", "mark task terminal failed", map[string]any{"task": spec.TaskID, "error": err.Error()})
	}
}

// Summary is the one-line task message for a finished run.
func Summary(kind model.TaskKind, r model.CampaignResult) string {
	if r.Status.Aborted() {
		return fmt.Sprintf("%s: %s", r.Status, r.Error)
	}
	switch kind {
	case model.TaskKindPost:
		return "post published"
	case model.TaskKindMessaging:
		return fmt.Sprintf("replied to %d conversations", r.Replies)
	}
	msg := fmt.Sprintf("sent %d of %d outreach actions across %d categories", r.TotalSent, r.Budget, len(r.Categories))
	if r.PostAttempted && !r.PostSucceeded {
		msg += " (post failed)"
	}
	return msg
}

func (o *Orchestrator) log(level, msg string, fields map[string]any) {
	if o.opts.Bus != nil {
		o.opts.Bus.Log(level, msg, fields)
	}
}
