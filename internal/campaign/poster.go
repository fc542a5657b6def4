package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach_engine/internal/logbus"
)

var ErrEmptyContent = errors.New("content is empty after sanitising")

type PosterOptions struct {
	FeedURL      string
	ReadyTimeout time.Duration
	Settle       time.Duration
}

type Poster struct {
	session  Session
	res      *Resolver
	overlays *Overlays
	pacer    *Pacer
	bus      *logbus.Bus
	opts     PosterOptions
}

func NewPoster(session Session, res *Resolver, overlays *Overlays, pacer *Pacer, bus *logbus.Bus, opts PosterOptions) *Poster {
	return &Poster{session: session, res: res, overlays: overlays, pacer: pacer, bus: bus, opts: opts}
}

// Publish types text into the feed composer and submits it.
func (p *Poster) Publish(ctx context.Context, text string) (err error) {
	text = Sanitize(text)
	if text == "" {
		return ErrEmptyContent
	}
	defer func() {
		if err != nil {
			p.overlays.Dismiss(ctx)
		}
	}()

	if err := p.session.Navigate(ctx, p.opts.FeedURL); err != nil {
		return fmt.Errorf("open feed: %w", err)
	}
	start, err := p.res.WaitResolve(ctx, StartPost, p.opts.ReadyTimeout)
	if err != nil {
		return err
	}
	if err := start[0].Click(ctx); err != nil {
		return fmt.Errorf("open composer: %w", err)
	}
	editor, err := p.res.WaitResolve(ctx, PostEditor, p.opts.ReadyTimeout)
	if err != nil {
		return err
	}
	if err := editor[0].Click(ctx); err != nil {
		return fmt.Errorf("focus editor: %w", err)
	}
	if err := editor[0].Input(ctx, text); err != nil {
		return fmt.Errorf("type post: %w", err)
	}
	button, err := p.res.WaitResolve(ctx, PostButton, p.opts.ReadyTimeout)
	if err != nil {
		return err
	}
	if err := button[0].Click(ctx); err != nil {
		return fmt.Errorf("submit post: %w", err)
	}
	_ = p.pacer.Sleep(ctx, p.opts.Settle)
	if p.bus != nil {
		p.bus.Log("info", "post published", map[string]any{"chars": len(text)})
	}
	return nil
}
