package campaign

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"outreach_engine/internal/logbus"
)

const DefaultReply = "Thanks for your message! I'll get back to you soon."

var selfAuthored = regexp.MustCompile(`\bYou\b`)

type ResponderOptions struct {
	MessagingURL     string
	MaxConversations int
	PollInterval     time.Duration
	// MaxCycles bounds the polling loop; 0 runs until ctx ends.
	MaxCycles    int
	Settle       time.Duration
	ReadyTimeout time.Duration
}

// Responder answers the latest inbound message of the first few conversations.
type Responder struct {
	session  Session
	res      *Resolver
	overlays *Overlays
	pacer    *Pacer
	content  ContentSource
	bus      *logbus.Bus
	metrics  Recorder
	opts     ResponderOptions
	answered map[string]struct{}
}

func NewResponder(session Session, res *Resolver, overlays *Overlays, pacer *Pacer, content ContentSource, bus *logbus.Bus, metrics Recorder, opts ResponderOptions) *Responder {
	if opts.MaxConversations <= 0 {
		opts.MaxConversations = 5
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Responder{
		session: session, res: res, overlays: overlays, pacer: pacer, content: content,
		bus: bus, metrics: metrics, opts: opts, answered: make(map[string]struct{}),
	}
}

// Run polls the inbox until MaxCycles cycles are done or ctx ends, returning the replies sent.
func (r *Responder) Run(ctx context.Context) int {
	total := 0
	for cycle := 1; r.opts.MaxCycles <= 0 || cycle <= r.opts.MaxCycles; cycle++ {
		if ctx.Err() != nil {
			break
		}
		n := r.Cycle(ctx)
		total += n
		r.log("info", "messaging cycle finished", map[string]any{"cycle": cycle, "replies": n, "total": total})
		if r.opts.MaxCycles > 0 && cycle == r.opts.MaxCycles {
			break
		}
		if err := r.pacer.Sleep(ctx, r.opts.PollInterval); err != nil {
			break
		}
	}
	return total
}

func (r *Responder) Cycle(ctx context.Context) int {
	if err := r.session.Navigate(ctx, r.opts.MessagingURL); err != nil {
		r.log("warn", "open messaging failed", map[string]any{"error": err.Error()})
		return 0
	}
	convs, err := r.res.WaitResolve(ctx, Conversations, r.opts.ReadyTimeout)
	if err != nil {
		return 0
	}
	if len(convs) > r.opts.MaxConversations {
		convs = convs[:r.opts.MaxConversations]
	}
	replies := 0
	for i, conv := range convs {
		if ctx.Err() != nil {
			break
		}
		if r.reply(ctx, i, conv) {
			replies++
		}
	}
	return replies
}

func (r *Responder) reply(ctx context.Context, idx int, conv Element) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log("warn", "conversation skipped", map[string]any{"index": idx, "panic": rec})
			ok = false
		}
	}()
	if err := conv.Click(ctx); err != nil {
		return false
	}
	_ = r.pacer.Sleep(ctx, r.opts.Settle)

	msgs, err := r.res.Resolve(ctx, ConversationMessages)
	if err != nil {
		return false
	}
	last, err := msgs[len(msgs)-1].Text(ctx)
	last = strings.TrimSpace(last)
	if err != nil || last == "" || selfAuthored.MatchString(last) {
		return false
	}
	key := messageKey(ctx, conversationLabel(ctx, idx, conv), msgs[len(msgs)-1], last)
	if _, done := r.answered[key]; done {
		return false
	}

	text, err := r.content.Reply(ctx, last)
	if err != nil {
		r.log("warn", "reply generation failed", map[string]any{"error": err.Error()})
		text = DefaultReply
	}
	if text = Sanitize(text); text == "" {
		text = DefaultReply
	}

	input, err := r.res.Resolve(ctx, MessageInput)
	if err != nil {
		return false
	}
	if err := input[0].Click(ctx); err != nil {
		return false
	}
	if err := input[0].Input(ctx, text); err != nil {
		return false
	}
	send, err := r.res.Resolve(ctx, SendMessage)
	if err != nil {
		return false
	}
	if err := send[0].Click(ctx); err != nil {
		return false
	}
	r.answered[key] = struct{}{}
	r.metrics.ReplySent()
	r.log("info", "reply sent", map[string]any{"index": idx, "chars": len(text)})
	_ = r.pacer.Sleep(ctx, r.opts.Settle)
	return true
}

// messageKey identifies a processed message by its element id, or by its conversation and text
// when the page gives the message no id.
func messageKey(ctx context.Context, conversation string, msg Element, text string) string {
	if id, err := msg.Attribute(ctx, "id"); err == nil && strings.TrimSpace(id) != "" {
		return "id:" + strings.TrimSpace(id)
	}
	sum := sha1.Sum([]byte(conversation + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// conversationLabel names a conversation list item in a way that survives reloading the inbox.
func conversationLabel(ctx context.Context, idx int, conv Element) string {
	for _, attr := range []string{"data-id", "id"} {
		if v, err := conv.Attribute(ctx, attr); err == nil && strings.TrimSpace(v) != "" {
			return attr + "=" + strings.TrimSpace(v)
		}
	}
	if text, err := conv.Text(ctx); err == nil && strings.TrimSpace(text) != "" {
		return "text=" + strings.TrimSpace(text)
	}
	return "index=" + strconv.Itoa(idx)
}

func (r *Responder) log(level, msg string, fields map[string]any) {
	if r.bus != nil {
		r.bus.Log(level, msg, fields)
	}
}
