package campaign

import (
	"context"
	"time"
)

type Walker struct {
	res      *Resolver
	overlays *Overlays
	pacer    *Pacer
	turn     time.Duration
}

func NewWalker(res *Resolver, overlays *Overlays, pacer *Pacer, turn time.Duration) *Walker {
	return &Walker{res: res, overlays: overlays, pacer: pacer, turn: turn}
}

// Advance clicks an enabled next-page control. False means the result set is exhausted.
func (w *Walker) Advance(ctx context.Context) bool {
	els, err := w.res.Resolve(ctx, NextPage)
	if err != nil {
		return false
	}
	w.overlays.Dismiss(ctx)
	if err := els[0].Click(ctx); err != nil {
		return false
	}
	return w.pacer.Sleep(ctx, w.turn) == nil
}
