package campaign

import (
	"context"
	"time"

	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
)

// CustomCategory holds single-keyword runs.
const CustomCategory = "custom"

type QuotaState struct {
	TotalSent         int
	PerCategoryTarget int
	SentThisCategory  int
}

// PerCategoryTarget is max(2, budget / categories).
func PerCategoryTarget(budget, categories int) int {
	if categories <= 0 {
		return 0
	}
	t := budget / categories
	if t < 2 {
		t = 2
	}
	return t
}

type AllocatorOptions struct {
	CooldownMin time.Duration
	CooldownMax time.Duration
	// Rebalance recomputes the target at each category from what is left. Off by default.
	Rebalance bool
}

type Allocator struct {
	categories []model.CategorySpec
	search     KeywordSearcher
	pacer      *Pacer
	bus        *logbus.Bus
	opts       AllocatorOptions
}

func NewAllocator(categories []model.CategorySpec, search KeywordSearcher, pacer *Pacer, bus *logbus.Bus, opts AllocatorOptions) *Allocator {
	return &Allocator{categories: categories, search: search, pacer: pacer, bus: bus, opts: opts}
}

// Run spreads budget over the categories in declared order. A category moves on after its first
// productive keyword; unused quota is not carried over unless Rebalance is set.
func (a *Allocator) Run(ctx context.Context, budget int) model.CampaignResult {
	result := model.CampaignResult{Status: model.CampaignCompleted, Budget: budget}
	q := QuotaState{PerCategoryTarget: PerCategoryTarget(budget, len(a.categories))}
	remaining := budget

	for i, cat := range a.categories {
		if remaining <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return a.cancelled(result, q, err)
		}
		if a.opts.Rebalance {
			q.PerCategoryTarget = PerCategoryTarget(remaining, len(a.categories)-i)
		}
		q.SentThisCategory = 0
		cr := model.CategoryResult{Name: cat.Name, Target: q.PerCategoryTarget}
		a.log("info", "category started", map[string]any{"category": cat.Name, "target": q.PerCategoryTarget, "remaining": remaining})

		for _, kw := range cat.Keywords {
			if remaining <= 0 {
				break
			}
			if err := ctx.Err(); err != nil {
				result.Categories = append(result.Categories, cr)
				return a.cancelled(result, q, err)
			}
			want := min(q.PerCategoryTarget, remaining)
			if want <= 0 {
				continue
			}
			a.log("info", "keyword started", map[string]any{"category": cat.Name, "keyword": kw, "want": want})
			kr := a.search.SearchAndAttempt(ctx, kw, want)
			cr.Keywords = append(cr.Keywords, kr)

			sent := kr.Sent
			remaining -= sent
			q.TotalSent += sent
			q.SentThisCategory += sent
			cr.Sent += sent
			a.log("info", "keyword finished", map[string]any{"category": cat.Name, "keyword": kw, "sent": sent, "remaining": remaining})

			if sent > 0 {
				_ = a.pacer.Between(ctx, a.opts.CooldownMin, a.opts.CooldownMax)
				break
			}
		}
		result.Categories = append(result.Categories, cr)
		a.log("info", "category finished", map[string]any{"category": cat.Name, "sent": cr.Sent, "target": cr.Target})
	}

	result.TotalSent = q.TotalSent
	return result
}

// RunKeyword runs a single search for keyword with the whole budget.
func (a *Allocator) RunKeyword(ctx context.Context, keyword string, budget int) model.CampaignResult {
	result := model.CampaignResult{Status: model.CampaignCompleted, Budget: budget}
	a.log("info", "keyword started", map[string]any{"category": CustomCategory, "keyword": keyword, "want": budget})
	kr := a.search.SearchAndAttempt(ctx, keyword, budget)
	result.Categories = []model.CategoryResult{{Name: CustomCategory, Target: budget, Sent: kr.Sent, Keywords: []model.KeywordResult{kr}}}
	result.TotalSent = kr.Sent
	if err := ctx.Err(); err != nil {
		result.Status = model.CampaignError
		result.Error = err.Error()
	}
	return result
}

func (a *Allocator) cancelled(result model.CampaignResult, q QuotaState, err error) model.CampaignResult {
	result.TotalSent = q.TotalSent
	result.Status = model.CampaignError
	result.Error = err.Error()
	a.log("warn", "campaign cancelled", map[string]any{"sent": q.TotalSent, "error": err.Error()})
	return result
}

func (a *Allocator) log(level, msg string, fields map[string]any) {
	if a.bus != nil {
		a.bus.Log(level, msg, fields)
	}
}
