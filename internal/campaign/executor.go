package campaign

import (
	"context"
	"fmt"
	"time"

	"outreach_engine/internal/logbus"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type Progress struct {
	Sent int
	Want int
}

type ExecutorOptions struct {
	Accept KindSet
	// Settle is the fixed pause after scrolling a candidate into view.
	Settle time.Duration
	// ConfirmWait bounds the wait for the invitation modal after a connect click.
	ConfirmWait time.Duration
}

type Executor struct {
	res      *Resolver
	overlays *Overlays
	pacer    *Pacer
	bus      *logbus.Bus
	metrics  Recorder
	opts     ExecutorOptions
}

func NewExecutor(res *Resolver, overlays *Overlays, pacer *Pacer, bus *logbus.Bus, metrics Recorder, opts ExecutorOptions) *Executor {
	if opts.Accept == nil {
		opts.Accept = Kinds(KindConnect)
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Executor{res: res, overlays: overlays, pacer: pacer, bus: bus, metrics: metrics, opts: opts}
}

// Attempt performs one outreach action and then waits the pacing interval, whatever the outcome.
func (e *Executor) Attempt(ctx context.Context, c Candidate, p Progress) Outcome {
	outcome, subject, reason := e.try(ctx, c)
	if outcome == OutcomeSent {
		p.Sent++
	}

	fields := map[string]any{
		"name":     subject.Name,
		"headline": subject.Headline,
		"kind":     string(c.Kind),
		"outcome":  string(outcome),
		"progress": fmt.Sprintf("%d/%d", p.Sent, p.Want),
	}
	level := "info"
	if reason != "" {
		fields["reason"] = reason
	}
	if outcome == OutcomeFailed {
		level = "warn"
	}
	if e.bus != nil {
		e.bus.Log(level, "outreach attempt", fields)
	}
	e.metrics.ActionAttempted(c.Kind, outcome)

	_ = e.pacer.Pace(ctx)
	return outcome
}

func (e *Executor) try(ctx context.Context, c Candidate) (outcome Outcome, subject Subject, reason string) {
	subject = c.Subject
	if subject.Name == "" {
		subject = placeholderSubject()
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	el := c.Element
	if err := el.ScrollIntoView(ctx); err != nil {
		return OutcomeFailed, subject, fmt.Sprintf("scroll: %v", err)
	}
	if err := e.pacer.Sleep(ctx, e.opts.Settle); err != nil {
		return OutcomeFailed, subject, err.Error()
	}

	subject, card := ExtractSubject(ctx, e.res, el)

	if !e.opts.Accept.Has(c.Kind) {
		return OutcomeSkipped, subject, fmt.Sprintf("%s is not an accepted action", c.Kind)
	}

	e.overlays.Dismiss(ctx)

	if err := e.pacer.Acquire(ctx); err != nil {
		return OutcomeFailed, subject, err.Error()
	}
	if err := el.Click(ctx); err != nil {
		return OutcomeFailed, subject, fmt.Sprintf("click: %v", err)
	}

	switch c.Kind {
	case KindConnect:
		return e.confirmConnect(ctx, card, subject)
	default:
		return OutcomeSent, subject, ""
	}
}

// confirmConnect finishes the invitation modal. An existing pending invitation counts as sent.
func (e *Executor) confirmConnect(ctx context.Context, card Element, subject Subject) (Outcome, Subject, string) {
	attempts := int(e.opts.ConfirmWait / e.res.poll)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		for _, t := range []Target{SendWithoutNote, SendInvitation} {
			els, err := e.res.resolveQuiet(ctx, t, e.res.page.Find)
			if err != nil {
				continue
			}
			if err := els[0].Click(ctx); err != nil {
				return OutcomeFailed, subject, fmt.Sprintf("%s: %v", t.Name, err)
			}
			return OutcomeSent, subject, ""
		}
		if e.alreadyPending(ctx, card) {
			e.overlays.Dismiss(ctx)
			return OutcomeSent, subject, "already pending"
		}
		if i < attempts-1 {
			if err := e.res.sleep(ctx, e.res.poll); err != nil {
				return OutcomeFailed, subject, err.Error()
			}
		}
	}
	e.res.logExhausted(SendInvitation)
	e.overlays.Dismiss(ctx)
	return OutcomeFailed, subject, "no send control and no pending status"
}

func (e *Executor) alreadyPending(ctx context.Context, card Element) bool {
	find := e.res.page.Find
	if card != nil {
		find = card.Find
	}
	_, err := e.res.resolveQuiet(ctx, PendingStatus, find)
	return err == nil
}
