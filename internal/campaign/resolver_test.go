package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeWay = Target{Name: "three way", Strategies: []Strategy{
	css(MatchAttribute, "#s1"),
	css(MatchClass, ".s2"),
	xpath(MatchText, "//s3"),
}}

func TestResolveReturnsFirstMatchingStrategyOnly(t *testing.T) {
	h := newHarness()
	a, b := newEl("a", ""), newEl("b", "")
	h.page.set(threeWay.Strategies[1], a, b)
	h.page.set(threeWay.Strategies[2], newEl("c", ""))

	els, err := h.res.Resolve(context.Background(), threeWay)
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "a", els[0].Key())
	assert.Equal(t, "b", els[1].Key())
	assert.True(t, h.page.queried("#s1"))
	assert.False(t, h.page.queried("//s3"))
}

func TestResolveSkipsHiddenAndDisabled(t *testing.T) {
	h := newHarness()
	hidden := newEl("hidden", "")
	hidden.hidden = true
	disabled := newEl("disabled", "")
	disabled.disabled = true
	h.page.set(threeWay.Strategies[0], hidden, disabled)
	h.page.set(threeWay.Strategies[2], newEl("c", ""))

	els, err := h.res.Resolve(context.Background(), threeWay)
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Equal(t, "c", els[0].Key())
}

func TestResolveExhaustedIsNotFound(t *testing.T) {
	h := newHarness()
	_, err := h.res.Resolve(context.Background(), threeWay)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	logs := h.logs("selector exhausted")
	require.Len(t, logs, 1)
	assert.Equal(t, "three way", logs[0].Fields["target"])
}

func TestResolveWithinUsesRoot(t *testing.T) {
	h := newHarness()
	root := newEl("root", "")
	root.children["#s1"] = []*fakeElement{newEl("inner", "")}

	els, err := h.res.ResolveWithin(context.Background(), root, threeWay)
	require.NoError(t, err)
	assert.Equal(t, "inner", els[0].Key())
	assert.False(t, h.page.queried("#s1"))

	_, err = h.res.ResolveWithin(context.Background(), nil, threeWay)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaitResolvePollsUntilPresent(t *testing.T) {
	h := newHarness()
	h.sleeper.hook = func(n int) {
		if n == 3 {
			h.page.set(threeWay.Strategies[0], newEl("late", ""))
		}
	}
	els, err := h.res.WaitResolve(context.Background(), threeWay, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late", els[0].Key())
	assert.Equal(t, 3, h.sleeper.count(defaultPollInterval))
	assert.Empty(t, h.logs("selector exhausted"))
}

func TestWaitResolveGivesUpAfterBudget(t *testing.T) {
	h := newHarness()
	_, err := h.res.WaitResolve(context.Background(), threeWay, time.Second)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 3, h.sleeper.count(defaultPollInterval))
	assert.Len(t, h.logs("selector exhausted"), 1)
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	h := newHarness()
	h.page.set(threeWay.Strategies[0], newEl("a", ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.res.Resolve(ctx, threeWay)
	assert.ErrorIs(t, err, context.Canceled)
}
