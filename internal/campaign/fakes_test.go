package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
)

type fakeElement struct {
	key      string
	text     string
	attrs    map[string]string
	hidden   bool
	disabled bool
	children map[string][]*fakeElement

	clickErr   error
	clickPanic bool
	onClick    func()
	clicks     int
	typed      string
}

func newEl(key, text string) *fakeElement {
	return &fakeElement{key: key, text: text, attrs: map[string]string{}, children: map[string][]*fakeElement{}}
}

func (e *fakeElement) Key() string { return e.key }

func (e *fakeElement) Visible(context.Context) bool { return !e.hidden }

func (e *fakeElement) Enabled(context.Context) bool { return !e.disabled }

func (e *fakeElement) ScrollIntoView(context.Context) error { return nil }

func (e *fakeElement) Click(context.Context) error {
	if e.clickPanic {
		panic("node detached")
	}
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Input(_ context.Context, text string) error {
	e.typed += text
	return nil
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(_ context.Context, name string) (string, error) {
	v, ok := e.attrs[name]
	if !ok {
		return "", errors.New("no attribute")
	}
	return v, nil
}

func (e *fakeElement) Find(_ context.Context, s Strategy) ([]Element, error) {
	return toElements(e.children[s.Expr]), nil
}

func (e *fakeElement) child(t Target, els ...*fakeElement) *fakeElement {
	e.children[t.Strategies[0].Expr] = els
	return e
}

type fakePage struct {
	mu      sync.Mutex
	els     map[string][]*fakeElement
	queries []string
	scrolls int
}

func newPage() *fakePage {
	return &fakePage{els: map[string][]*fakeElement{}}
}

func (p *fakePage) set(s Strategy, els ...*fakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.els[s.Expr] = els
}

func (p *fakePage) setTarget(t Target, els ...*fakeElement) {
	p.set(t.Strategies[0], els...)
}

func (p *fakePage) Find(_ context.Context, s Strategy) ([]Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, s.Expr)
	return toElements(p.els[s.Expr]), nil
}

func (p *fakePage) ScrollTo(context.Context, int) error {
	p.mu.Lock()
	p.scrolls++
	p.mu.Unlock()
	return nil
}

func (p *fakePage) URL(context.Context) string { return "https://example.test/feed" }

func (p *fakePage) queried(expr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, q := range p.queries {
		if q == expr {
			return true
		}
	}
	return false
}

func toElements(in []*fakeElement) []Element {
	out := make([]Element, 0, len(in))
	for _, e := range in {
		out = append(out, e)
	}
	return out
}

type fakeSession struct {
	page        *fakePage
	noPage      bool
	loginErr    error
	navigations []string
	onNavigate  func(url string)
	closes      int
}

func (s *fakeSession) Login(context.Context, Credentials) error { return s.loginErr }

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.navigations = append(s.navigations, url)
	if s.onNavigate != nil {
		s.onNavigate(url)
	}
	return nil
}

func (s *fakeSession) WaitReady(context.Context, Target, time.Duration) error { return nil }

func (s *fakeSession) Page() Page {
	if s.noPage {
		return nil
	}
	return s.page
}

func (s *fakeSession) Close() error {
	s.closes++
	return nil
}

type fakeContent struct {
	text     string
	err      error
	panicMsg string
	reply    string
	replyErr error
}

func (c *fakeContent) Generate(context.Context, string, string) (string, error) {
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	return c.text, c.err
}

func (c *fakeContent) Reply(context.Context, string) (string, error) {
	return c.reply, c.replyErr
}

type reportCall struct {
	taskID  string
	status  model.TaskStatus
	message string
	result  *model.CampaignResult
}

type fakeReporter struct {
	mu    sync.Mutex
	calls []reportCall
}

func (r *fakeReporter) MarkTerminal(_ context.Context, id string, status model.TaskStatus, msg string, res *model.CampaignResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, reportCall{taskID: id, status: status, message: msg, result: res})
	return nil
}

// recordingSleep returns instantly and remembers every requested duration.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
	hook  func(n int)
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	n := len(s.waits)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

func (s *recordingSleep) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.waits {
		if w == d {
			n++
		}
	}
	return n
}

type harness struct {
	page     *fakePage
	bus      *logbus.Bus
	sleeper  *recordingSleep
	res      *Resolver
	overlays *Overlays
	pacer    *Pacer
}

const testPace = 7 * time.Second

func newHarness() *harness {
	h := &harness{page: newPage(), bus: logbus.New(500), sleeper: &recordingSleep{}}
	h.res = NewResolver(h.page, h.bus)
	h.res.sleep = h.sleeper.sleep
	h.overlays = NewOverlays(h.res)
	h.pacer = NewPacer(testPace, testPace, nil)
	h.pacer.sleep = h.sleeper.sleep
	return h
}

func (h *harness) executor(accept KindSet) *Executor {
	return NewExecutor(h.res, h.overlays, h.pacer, h.bus, nil, ExecutorOptions{
		Accept:      accept,
		Settle:      time.Second,
		ConfirmWait: time.Second,
	})
}

func (h *harness) logs(msg string) []logbus.LogData {
	var out []logbus.LogData
	for _, m := range h.bus.Snapshot() {
		if d, ok := m.Data.(logbus.LogData); ok && d.Msg == msg {
			out = append(out, d)
		}
	}
	return out
}

// resultCard builds a search result card holding btn with a name and headline.
func resultCard(key, name, headline string, btn *fakeElement) *fakeElement {
	card := newEl(key, "")
	card.child(SubjectName, newEl(key+"/name", name))
	card.child(SubjectHeadline, newEl(key+"/headline", headline))
	card.child(CardButtons, btn)
	btn.child(CardAncestor, card)
	return card
}

func connectButton(i int) *fakeElement {
	return newEl(fmt.Sprintf("connect-%d", i), "Connect")
}
