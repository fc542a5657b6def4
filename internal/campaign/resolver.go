package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach_engine/internal/logbus"
)

// ErrNotFound means every strategy of a target came back empty.
var ErrNotFound = errors.New("element not found")

const defaultPollInterval = 250 * time.Millisecond

type finder func(ctx context.Context, s Strategy) ([]Element, error)

type Resolver struct {
	page  Page
	bus   *logbus.Bus
	poll  time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewResolver(page Page, bus *logbus.Bus) *Resolver {
	return &Resolver{page: page, bus: bus, poll: defaultPollInterval, sleep: sleepCtx}
}

// Resolve returns the visible, enabled matches of the first strategy that has any.
func (r *Resolver) Resolve(ctx context.Context, t Target) ([]Element, error) {
	return r.resolve(ctx, t, r.page.Find)
}

// ResolveWithin evaluates t relative to root.
func (r *Resolver) ResolveWithin(ctx context.Context, root Element, t Target) ([]Element, error) {
	if root == nil {
		return nil, fmt.Errorf("%s: %w", t.Name, ErrNotFound)
	}
	return r.resolve(ctx, t, root.Find)
}

// WaitResolve polls Resolve until it succeeds, ctx ends or timeout elapses.
func (r *Resolver) WaitResolve(ctx context.Context, t Target, timeout time.Duration) ([]Element, error) {
	attempts := int(timeout / r.poll)
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		els, err := r.resolveQuiet(ctx, t, r.page.Find)
		if err == nil {
			return els, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if err := r.sleep(ctx, r.poll); err != nil {
			return nil, err
		}
	}
	r.logExhausted(t)
	return nil, lastErr
}

func (r *Resolver) resolve(ctx context.Context, t Target, find finder) ([]Element, error) {
	els, err := r.resolveQuiet(ctx, t, find)
	if err != nil {
		r.logExhausted(t)
	}
	return els, err
}

func (r *Resolver) resolveQuiet(ctx context.Context, t Target, find finder) ([]Element, error) {
	for _, s := range t.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := find(ctx, s)
		if err != nil || len(found) == 0 {
			continue
		}
		usable := found[:0:0]
		for _, el := range found {
			if el.Visible(ctx) && el.Enabled(ctx) {
				usable = append(usable, el)
			}
		}
		if len(usable) > 0 {
			return usable, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", t.Name, ErrNotFound)
}

func (r *Resolver) logExhausted(t Target) {
	if r.bus == nil {
		return
	}
	r.bus.Log("debug", "selector exhausted", map[string]any{
		"target":     t.Name,
		"strategies": len(t.Strategies),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
