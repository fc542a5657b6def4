package campaign

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"outreach_engine/internal/model"
)

type searchCall struct {
	keyword string
	want    int
}

type fakeSearcher struct {
	mu    sync.Mutex
	calls []searchCall
	yield func(keyword string, want int) int
}

func (f *fakeSearcher) SearchAndAttempt(_ context.Context, keyword string, want int) model.KeywordResult {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{keyword: keyword, want: want})
	f.mu.Unlock()
	sent := 0
	if f.yield != nil {
		sent = f.yield(keyword, want)
	}
	return model.KeywordResult{Keyword: keyword, Target: want, Sent: sent}
}

func (f *fakeSearcher) called(keyword string) bool {
	for _, c := range f.calls {
		if c.keyword == keyword {
			return true
		}
	}
	return false
}

func categories(n, keywords int) []model.CategorySpec {
	out := make([]model.CategorySpec, n)
	for i := range out {
		out[i].Name = fmt.Sprintf("cat%d", i+1)
		for k := 0; k < keywords; k++ {
			out[i].Keywords = append(out[i].Keywords, fmt.Sprintf("cat%d-kw%d", i+1, k+1))
		}
	}
	return out
}

const (
	testCooldownMin = 10 * time.Second
	testCooldownMax = 20 * time.Second
)

func newTestAllocator(cats []model.CategorySpec, s KeywordSearcher, rebalance bool) (*Allocator, *recordingSleep) {
	sleeper := &recordingSleep{}
	pacer := NewPacer(testCooldownMin, testCooldownMin, nil)
	pacer.sleep = sleeper.sleep
	a := NewAllocator(cats, s, pacer, nil, AllocatorOptions{
		CooldownMin: testCooldownMin,
		CooldownMax: testCooldownMin,
		Rebalance:   rebalance,
	})
	return a, sleeper
}

func TestPerCategoryTarget(t *testing.T) {
	assert.Equal(t, 5, PerCategoryTarget(50, 10))
	assert.Equal(t, 2, PerCategoryTarget(20, 10))
	assert.Equal(t, 2, PerCategoryTarget(3, 10))
	assert.Equal(t, 2, PerCategoryTarget(0, 4))
	assert.Equal(t, 0, PerCategoryTarget(10, 0))
}

func TestRunScenarioFiftyAcrossTen(t *testing.T) {
	s := &fakeSearcher{yield: func(kw string, want int) int {
		switch {
		case kw == "cat1-kw1":
			return 5
		case len(kw) >= 4 && kw[:4] == "cat9":
			return 0
		default:
			return 1
		}
	}}
	a, sleeper := newTestAllocator(categories(10, 3), s, false)

	res := a.Run(context.Background(), 50)
	require.Equal(t, model.CampaignCompleted, res.Status)
	require.Len(t, res.Categories, 10)
	for _, c := range res.Categories {
		assert.Equal(t, 5, c.Target, c.Name)
	}
	for _, call := range s.calls {
		assert.Equal(t, 5, call.want, call.keyword)
	}
	assert.Equal(t, 5, res.Categories[0].Sent)
	assert.Equal(t, 0, res.Categories[8].Sent)
	assert.Len(t, res.Categories[8].Keywords, 3)
	assert.Equal(t, 1, res.Categories[9].Sent)
	assert.Equal(t, 5+7*1+0+1, res.TotalSent)
	// one cooldown per productive category
	assert.Equal(t, 9, sleeper.count(testCooldownMin))
}

func TestRunEarlyBreakAfterFirstProductiveKeyword(t *testing.T) {
	s := &fakeSearcher{yield: func(kw string, want int) int {
		if kw == "cat1-kw2" {
			return 1
		}
		return 0
	}}
	a, sleeper := newTestAllocator(categories(1, 3), s, false)

	res := a.Run(context.Background(), 10)
	assert.True(t, s.called("cat1-kw1"))
	assert.True(t, s.called("cat1-kw2"))
	assert.False(t, s.called("cat1-kw3"))
	assert.Equal(t, 1, res.TotalSent)
	assert.Equal(t, 1, sleeper.count(testCooldownMin))
}

func TestRunStopsWhenBudgetIsSpent(t *testing.T) {
	s := &fakeSearcher{yield: func(_ string, want int) int { return want }}
	a, _ := newTestAllocator(categories(10, 2), s, false)

	res := a.Run(context.Background(), 4)
	assert.Equal(t, 4, res.TotalSent)
	assert.Len(t, res.Categories, 2)
	assert.Len(t, s.calls, 2)
}

func TestRunWithoutRebalanceKeepsTarget(t *testing.T) {
	yield := func(kw string, want int) int {
		if kw[:4] == "cat1" {
			return 0
		}
		return want
	}

	s := &fakeSearcher{yield: yield}
	a, _ := newTestAllocator(categories(2, 1), s, false)
	res := a.Run(context.Background(), 10)
	assert.Equal(t, 5, res.Categories[1].Target)
	assert.Equal(t, 5, res.TotalSent)

	s = &fakeSearcher{yield: yield}
	a, _ = newTestAllocator(categories(2, 1), s, true)
	res = a.Run(context.Background(), 10)
	assert.Equal(t, 10, res.Categories[1].Target)
	assert.Equal(t, 10, res.TotalSent)
}

func TestRunCancelledBetweenKeywords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeSearcher{yield: func(kw string, want int) int {
		cancel()
		return 0
	}}
	a, _ := newTestAllocator(categories(3, 3), s, false)

	res := a.Run(ctx, 9)
	assert.Equal(t, model.CampaignError, res.Status)
	assert.Len(t, s.calls, 1)
	require.Len(t, res.Categories, 1)
	assert.Equal(t, "cat1", res.Categories[0].Name)
}

func TestRunKeywordUsesWholeBudget(t *testing.T) {
	s := &fakeSearcher{yield: func(_ string, want int) int { return want - 1 }}
	a, _ := newTestAllocator(categories(3, 3), s, false)

	res := a.RunKeyword(context.Background(), "LLM engineer", 6)
	require.Len(t, s.calls, 1)
	assert.Equal(t, searchCall{keyword: "LLM engineer", want: 6}, s.calls[0])
	assert.Equal(t, 5, res.TotalSent)
	assert.Equal(t, CustomCategory, res.Categories[0].Name)
}

func TestRunProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		budget := rapid.IntRange(0, 200).Draw(rt, "budget")
		nCats := rapid.IntRange(1, 12).Draw(rt, "categories")
		nKws := rapid.IntRange(1, 4).Draw(rt, "keywords")
		rebalance := rapid.Bool().Draw(rt, "rebalance")
		yields := rapid.SliceOfN(rapid.IntRange(0, 100), nCats*nKws, nCats*nKws).Draw(rt, "yields")

		cats := categories(nCats, nKws)
		index := make(map[string]int)
		for ci, c := range cats {
			for ki, kw := range c.Keywords {
				index[kw] = ci*nKws + ki
			}
		}
		s := &fakeSearcher{yield: func(kw string, want int) int {
			return yields[index[kw]] % (want + 1)
		}}
		a, _ := newTestAllocator(cats, s, rebalance)
		res := a.Run(context.Background(), budget)

		target := PerCategoryTarget(budget, nCats)
		require.Equal(rt, max(2, budget/nCats), target)

		sum := 0
		for _, c := range res.Categories {
			sum += c.Sent
			if !rebalance {
				require.Equal(rt, target, c.Target)
			}
		}
		require.Equal(rt, res.TotalSent, sum)
		require.LessOrEqual(rt, sum, budget)

		for _, call := range s.calls {
			require.Greater(rt, call.want, 0)
			if !rebalance {
				require.LessOrEqual(rt, call.want, target)
			}
		}

		// no keyword of a category is searched after a productive one
		for _, c := range res.Categories {
			productive := false
			for _, kr := range c.Keywords {
				require.False(rt, productive, "keyword %s searched after a productive keyword", kr.Keyword)
				if kr.Sent > 0 {
					productive = true
				}
			}
		}

		// categories are visited in declared order and never revisited
		for i, c := range res.Categories {
			require.Equal(rt, cats[i].Name, c.Name)
		}
	})
}
