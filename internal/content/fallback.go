package content

import (
	"context"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/logbus"
)

// Fallback serves from primary and falls back to the template source when primary fails.
type Fallback struct {
	primary  campaign.ContentSource
	template *Template
	bus      *logbus.Bus
}

func NewFallback(primary campaign.ContentSource, bus *logbus.Bus) *Fallback {
	return &Fallback{primary: primary, template: NewTemplate(), bus: bus}
}

func (f *Fallback) Generate(ctx context.Context, industry, topic string) (string, error) {
	text, err := f.primary.Generate(ctx, industry, topic)
	if err == nil {
		return text, nil
	}
	f.warn("content generation failed, using template", err)
	return f.template.Generate(ctx, industry, topic)
}

func (f *Fallback) Reply(ctx context.Context, message string) (string, error) {
	text, err := f.primary.Reply(ctx, message)
	if err == nil {
		return text, nil
	}
	f.warn("reply generation failed, using default reply", err)
	return f.template.Reply(ctx, message)
}

func (f *Fallback) warn(msg string, err error) {
	if f.bus != nil {
		f.bus.Log("warn", msg, map[string]any{"error": err.Error()})
	}
}
