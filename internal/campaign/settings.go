package campaign

import (
	"time"

	"golang.org/x/time/rate"

	"outreach_engine/internal/config"
)

// NewActionLimiter builds the click limiter shared by every campaign of a process.
func NewActionLimiter(l config.LimitsConfig) *rate.Limiter {
	perMinute := l.ActionsPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	return rate.NewLimiter(rate.Limit(perMinute/60), max(l.ActionsBurst, 1))
}

func SettingsFromConfig(cfg config.Config) Settings {
	c := cfg.Campaign
	return Settings{
		Categories:   c.Categories,
		Budget:       c.TotalBudget,
		MaxPages:     c.MaxPagesPerKeyword,
		AcceptFollow: c.FollowAccepted(),
		Rebalance:    c.Rebalance,

		Settle:       c.Settle(),
		PaceMin:      c.PaceMin(),
		PaceMax:      c.PaceMax(),
		CooldownMin:  c.CooldownMin(),
		CooldownMax:  c.CooldownMax(),
		PageTurn:     c.PageTurn(),
		ReadyTimeout: c.ReadyTimeout(),
		ScrollStep:   time.Second,
		ConfirmWait:  c.Settle(),

		Industry:  cfg.Content.Industry,
		FeedURL:   cfg.Browser.FeedURL,
		SearchURL: cfg.Browser.SearchURL,
		Messaging: ResponderOptions{
			MessagingURL:     cfg.Browser.MessagingURL,
			MaxConversations: cfg.Messaging.MaxConversations,
			PollInterval:     cfg.Messaging.PollInterval(),
			MaxCycles:        cfg.Messaging.MaxCycles,
			Settle:           c.Settle(),
			ReadyTimeout:     c.ReadyTimeout(),
		},
	}
}
