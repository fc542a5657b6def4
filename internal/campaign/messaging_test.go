package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResponder(h *harness, content ContentSource, cycles int) (*Responder, *fakeSession) {
	session := &fakeSession{page: h.page}
	return NewResponder(session, h.res, h.overlays, h.pacer, content, h.bus, nil, ResponderOptions{
		MessagingURL:     "https://example.test/messaging/",
		MaxConversations: 2,
		PollInterval:     15 * time.Second,
		MaxCycles:        cycles,
		Settle:           time.Second,
		ReadyTimeout:     time.Second,
	}), session
}

// conversation makes a list item whose click shows messages as the open thread.
func conversation(h *harness, key string, messages ...string) *fakeElement {
	conv := newEl(key, "")
	var els []*fakeElement
	for i, m := range messages {
		els = append(els, newEl(key+"/"+string(rune('a'+i)), m))
	}
	conv.onClick = func() { h.page.setTarget(ConversationMessages, els...) }
	return conv
}

func TestResponderRepliesToInboundMessages(t *testing.T) {
	h := newHarness()
	input := newEl("input", "")
	send := newEl("send", "Send")
	h.page.setTarget(MessageInput, input)
	h.page.setTarget(SendMessage, send)
	h.page.setTarget(Conversations,
		conversation(h, "c1", "Hi there", "Would love to connect about LLM tooling"),
		conversation(h, "c2", "You: sounds good"),
		conversation(h, "c3", "Never reached"),
	)

	r, session := newTestResponder(h, &fakeContent{reply: "Happy to chat, “LLM tooling” is my focus."}, 2)
	replies := r.Run(context.Background())

	assert.Equal(t, 1, replies)
	assert.Equal(t, 1, send.clicks)
	assert.Equal(t, `Happy to chat, "LLM tooling" is my focus.`, input.typed)
	assert.Len(t, session.navigations, 2)
	assert.Equal(t, 1, h.sleeper.count(15*time.Second))
}

func TestResponderRepliesToSameTextInDifferentConversations(t *testing.T) {
	h := newHarness()
	input := newEl("input", "")
	send := newEl("send", "Send")
	h.page.setTarget(MessageInput, input)
	h.page.setTarget(SendMessage, send)
	h.page.setTarget(Conversations, conversation(h, "c1", "Hi"), conversation(h, "c2", "Hi"))

	r, _ := newTestResponder(h, &fakeContent{reply: "Hello!"}, 2)
	assert.Equal(t, 2, r.Run(context.Background()))
	assert.Equal(t, 2, send.clicks)
}

func TestMessageKeyPrefersElementID(t *testing.T) {
	ctx := context.Background()
	a, b := newEl("a", "Hi"), newEl("b", "Hi")
	assert.NotEqual(t, messageKey(ctx, "index=0", a, "Hi"), messageKey(ctx, "index=1", b, "Hi"))
	assert.Equal(t, messageKey(ctx, "index=0", a, "Hi"), messageKey(ctx, "index=0", b, "Hi"))

	a.attrs["id"] = "msg-1"
	b.attrs["id"] = "msg-1"
	assert.Equal(t, "id:msg-1", messageKey(ctx, "index=0", a, "Hi"))
	assert.Equal(t, messageKey(ctx, "index=0", a, "Hi"), messageKey(ctx, "index=5", b, "Hi"))
}

func TestConversationLabel(t *testing.T) {
	ctx := context.Background()
	conv := newEl("node-9", "")
	assert.Equal(t, "index=3", conversationLabel(ctx, 3, conv))
	conv.text = " Dana Reyes "
	assert.Equal(t, "text=Dana Reyes", conversationLabel(ctx, 3, conv))
	conv.attrs["data-id"] = "c1"
	assert.Equal(t, "data-id=c1", conversationLabel(ctx, 3, conv))
}

func TestResponderFallsBackToDefaultReply(t *testing.T) {
	h := newHarness()
	input := newEl("input", "")
	h.page.setTarget(MessageInput, input)
	h.page.setTarget(SendMessage, newEl("send", "Send"))
	h.page.setTarget(Conversations, conversation(h, "c1", "Are you hiring?"))

	r, _ := newTestResponder(h, &fakeContent{replyErr: errors.New("rate limited")}, 1)
	require.Equal(t, 1, r.Run(context.Background()))
	assert.Equal(t, DefaultReply, input.typed)
}

func TestResponderStopsOnCancel(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, session := newTestResponder(h, &fakeContent{}, 0)
	assert.Equal(t, 0, r.Run(ctx))
	assert.Empty(t, session.navigations)
}
