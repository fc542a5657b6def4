package campaign

import (
	"context"
	"errors"
	"time"

	"outreach_engine/internal/model"
)

// Element is one node of the live page. Every call may fail once the node detaches.
type Element interface {
	// Key identifies the node for de-duplication within one page scan.
	Key() string
	Visible(ctx context.Context) bool
	Enabled(ctx context.Context) bool
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Input(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	// Find evaluates s relative to this element.
	Find(ctx context.Context, s Strategy) ([]Element, error)
}

type Page interface {
	Find(ctx context.Context, s Strategy) ([]Element, error)
	ScrollTo(ctx context.Context, y int) error
	URL(ctx context.Context) string
}

// ErrLoginFailed is wrapped by Session.Login with the reason, e.g. a verification checkpoint.
var ErrLoginFailed = errors.New("login failed")

type Credentials struct {
	Email    string
	Password string
}

// Session is one exclusively owned browser session. Close must be safe to call more than once.
type Session interface {
	Login(ctx context.Context, creds Credentials) error
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, target Target, timeout time.Duration) error
	Page() Page
	Close() error
}

type Opener interface {
	Open(ctx context.Context) (Session, error)
}

type OpenerFunc func(ctx context.Context) (Session, error)

func (f OpenerFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

type ContentSource interface {
	Generate(ctx context.Context, industry, topic string) (string, error)
	Reply(ctx context.Context, message string) (string, error)
}

type TaskReporter interface {
	MarkTerminal(ctx context.Context, taskID string, status model.TaskStatus, message string, result *model.CampaignResult) error
}

// Recorder receives counters for every attempt, post and finished run.
type Recorder interface {
	ActionAttempted(kind Kind, outcome Outcome)
	PostPublished(ok bool)
	ReplySent()
	CampaignFinished(kind model.TaskKind, status model.CampaignStatus, sent int)
}

type nopRecorder struct{}

func (nopRecorder) ActionAttempted(Kind, Outcome)                              {}
func (nopRecorder) PostPublished(bool)                                         {}
func (nopRecorder) ReplySent()                                                 {}
func (nopRecorder) CampaignFinished(model.TaskKind, model.CampaignStatus, int) {}
