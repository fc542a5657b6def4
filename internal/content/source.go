package content

import (
	"context"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/logbus"
)

// New builds the configured content source. Model-backed sources fall back to templates.
func New(ctx context.Context, cfg config.ContentConfig, bus *logbus.Bus) (campaign.ContentSource, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			bus.Log("warn", "openai api key missing, using template content", nil)
			return NewTemplate(), nil
		}
		return NewFallback(NewOpenAI(cfg.OpenAI, bus), bus), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			bus.Log("warn", "gemini api key missing, using template content", nil)
			return NewTemplate(), nil
		}
		g, err := NewGemini(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return NewFallback(g, bus), nil
	default:
		return NewTemplate(), nil
	}
}
