package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptConnectSendsWithoutNote(t *testing.T) {
	h := newHarness()
	btn := connectButton(1)
	resultCard("card-1", "Ada Lovelace", "Analyst", btn)
	send := newEl("send-plain", "Send")
	noNote := newEl("no-note", "Send without a note")
	btn.onClick = func() {
		h.page.setTarget(SendInvitation, send)
		h.page.setTarget(SendWithoutNote, noNote)
	}

	out := h.executor(Kinds(KindConnect)).Attempt(context.Background(), Candidate{Element: btn, Kind: KindConnect}, Progress{Want: 3})
	assert.Equal(t, OutcomeSent, out)
	assert.Equal(t, 1, noNote.clicks)
	assert.Equal(t, 0, send.clicks)

	logs := h.logs("outreach attempt")
	require.Len(t, logs, 1)
	assert.Equal(t, "Ada Lovelace", logs[0].Fields["name"])
	assert.Equal(t, "Analyst", logs[0].Fields["headline"])
	assert.Equal(t, "1/3", logs[0].Fields["progress"])
	assert.Equal(t, 1, h.sleeper.count(testPace))
}

func TestAttemptConnectFallsBackToSend(t *testing.T) {
	h := newHarness()
	btn := connectButton(1)
	send := newEl("send", "Send")
	btn.onClick = func() { h.page.setTarget(SendInvitation, send) }

	out := h.executor(Kinds(KindConnect)).Attempt(context.Background(), Candidate{Element: btn, Kind: KindConnect}, Progress{Want: 1})
	assert.Equal(t, OutcomeSent, out)
	assert.Equal(t, 1, send.clicks)

	logs := h.logs("outreach attempt")
	require.Len(t, logs, 1)
	assert.Equal(t, unknownName, logs[0].Fields["name"])
	assert.Equal(t, unknownHeadline, logs[0].Fields["headline"])
}

func TestAttemptConnectAlreadyPendingIsSent(t *testing.T) {
	h := newHarness()
	btn := connectButton(1)
	card := resultCard("card-1", "Grace Hopper", "Admiral", btn)
	card.child(PendingStatus, newEl("pending", "Pending"))
	dismiss := newEl("dismiss", "")
	h.page.setTarget(DismissOverlay, dismiss)

	out := h.executor(Kinds(KindConnect)).Attempt(context.Background(), Candidate{Element: btn, Kind: KindConnect}, Progress{Want: 1})
	assert.Equal(t, OutcomeSent, out)
	assert.Equal(t, 1, btn.clicks)
	assert.GreaterOrEqual(t, dismiss.clicks, 2)
	assert.Equal(t, "already pending", h.logs("outreach attempt")[0].Fields["reason"])
}

func TestAttemptConnectAlreadyConnectedIsSent(t *testing.T) {
	h := newHarness()
	btn := connectButton(1)
	card := resultCard("card-1", "Alan Turing", "Mathematician", btn)
	card.children[PendingStatus.Strategies[1].Expr] = []*fakeElement{newEl("status", "Connected")}

	out := h.executor(Kinds(KindConnect)).Attempt(context.Background(), Candidate{Element: btn, Kind: KindConnect}, Progress{Want: 1})
	assert.Equal(t, OutcomeSent, out)
	assert.Equal(t, "sent", h.logs("outreach attempt")[0].Fields["outcome"])
}

func TestAttemptConnectWithoutControlFails(t *testing.T) {
	h := newHarness()
	btn := connectButton(1)

	out := h.executor(Kinds(KindConnect)).Attempt(context.Background(), Candidate{Element: btn, Kind: KindConnect}, Progress{Want: 1})
	assert.Equal(t, OutcomeFailed, out)

	logs := h.logs("outreach attempt")
	require.Len(t, logs, 1)
	assert.Equal(t, "failed", logs[0].Fields["outcome"])
	assert.Equal(t, "0/1", logs[0].Fields["progress"])
	assert.Equal(t, 1, h.sleeper.count(testPace))
}

func TestAttemptSkipsUnacceptedKinds(t *testing.T) {
	h := newHarness()
	msg := newEl("message", "Message")

	out := h.executor(Kinds(KindConnect, KindFollow)).Attempt(context.Background(), Candidate{Element: msg, Kind: KindMessage}, Progress{Want: 1})
	assert.Equal(t, OutcomeSkipped, out)
	assert.Equal(t, 0, msg.clicks)
	assert.Equal(t, 1, h.sleeper.count(testPace))
}

func TestAttemptFollowIsSentOnClick(t *testing.T) {
	h := newHarness()
	follow := newEl("follow", "Follow")

	out := h.executor(Kinds(KindConnect, KindFollow)).Attempt(context.Background(), Candidate{Element: follow, Kind: KindFollow}, Progress{Want: 1})
	assert.Equal(t, OutcomeSent, out)
	assert.Equal(t, 1, follow.clicks)
}

func TestAttemptRecoversFromDetachedNode(t *testing.T) {
	h := newHarness()
	btn := connectButton(1)
	btn.clickPanic = true

	out := h.executor(Kinds(KindConnect)).Attempt(context.Background(), Candidate{Element: btn, Kind: KindConnect}, Progress{Want: 1})
	assert.Equal(t, OutcomeFailed, out)
	assert.Contains(t, h.logs("outreach attempt")[0].Fields["reason"], "node detached")
	assert.Equal(t, 1, h.sleeper.count(testPace))
}

func TestAttemptClickErrorFails(t *testing.T) {
	h := newHarness()
	btn := connectButton(1)
	btn.clickErr = errors.New("stale element")

	out := h.executor(Kinds(KindConnect)).Attempt(context.Background(), Candidate{Element: btn, Kind: KindConnect}, Progress{Want: 1})
	assert.Equal(t, OutcomeFailed, out)
}

func TestClassifyButton(t *testing.T) {
	cases := map[string]Kind{
		"Connect":               KindConnect,
		"Invite Ada to connect": KindConnect,
		"Follow":                KindFollow,
		"Following":             KindUnknown,
		"Message":               KindMessage,
		"More":                  KindUnknown,
	}
	for label, want := range cases {
		assert.Equal(t, want, ClassifyButton(label), label)
	}
}

func TestDiscoverPrefersConnectThenFollowThenCards(t *testing.T) {
	ctx := context.Background()

	h := newHarness()
	c1, c2 := connectButton(1), connectButton(2)
	h.page.setTarget(ConnectButtons, c1, c2, c1)
	h.page.setTarget(FollowButtons, newEl("f", "Follow"))
	got := NewDiscoverer(h.res, Kinds(KindConnect, KindFollow)).Discover(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, KindConnect, got[0].Kind)

	h = newHarness()
	h.page.setTarget(FollowButtons, newEl("f", "Follow"))
	assert.Empty(t, NewDiscoverer(h.res, Kinds(KindConnect)).Discover(ctx))
	got = NewDiscoverer(h.res, Kinds(KindConnect, KindFollow)).Discover(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, KindFollow, got[0].Kind)

	h = newHarness()
	msg := newEl("msg", "Message")
	more := newEl("more", "")
	more.attrs["aria-label"] = "Invite Ada to connect"
	card1 := resultCard("card-1", "A", "B", msg)
	card2 := resultCard("card-2", "C", "D", more)
	h.page.setTarget(ResultCards, card1, card2)
	got = NewDiscoverer(h.res, Kinds(KindConnect)).Discover(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, KindMessage, got[0].Kind)
	assert.Equal(t, KindConnect, got[1].Kind)
	assert.Equal(t, unknownName, got[0].Subject.Name)

	h = newHarness()
	msg = newEl("msg", "Message")
	connect := connectButton(3)
	card := resultCard("card-3", "E", "F", msg)
	card.child(CardButtons, msg, connect)
	h.page.setTarget(ResultCards, card)
	got = NewDiscoverer(h.res, Kinds(KindConnect)).Discover(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, KindConnect, got[0].Kind)
	assert.Equal(t, "connect-3", got[0].Element.Key())
}
