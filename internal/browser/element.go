package browser

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"outreach_engine/internal/campaign"
)

const actionTimeout = 5 * time.Second

// Page adapts a rod page to campaign.Page. Lookups never wait; callers poll.
type Page struct {
	page *rod.Page
}

func (p *Page) Find(ctx context.Context, s campaign.Strategy) ([]campaign.Element, error) {
	pg := p.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if s.Syntax == campaign.SyntaxXPath {
		els, err = pg.ElementsX(s.Expr)
	} else {
		els, err = pg.Elements(s.Expr)
	}
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func (p *Page) ScrollTo(ctx context.Context, y int) error {
	_, err := p.page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (p *Page) URL(ctx context.Context) string {
	info, err := p.page.Context(ctx).Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

type Element struct {
	el  *rod.Element
	key string
}

func wrapElements(els rod.Elements) []campaign.Element {
	out := make([]campaign.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el})
	}
	return out
}

// Key is the backend node id, stable across repeated queries of the same node.
func (e *Element) Key() string {
	if e.key != "" {
		return e.key
	}
	if node, err := e.el.Describe(0, false); err == nil && node != nil {
		e.key = strconv.Itoa(int(node.BackendNodeID))
	} else if e.el.Object != nil {
		e.key = string(e.el.Object.ObjectID)
	}
	return e.key
}

func (e *Element) Visible(ctx context.Context) bool {
	v, err := e.el.Context(ctx).Visible()
	return err == nil && v
}

func (e *Element) Enabled(ctx context.Context) bool {
	d, err := e.el.Context(ctx).Disabled()
	return err == nil && !d
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

// Click uses a real mouse click and falls back to a DOM click when the element is covered.
func (e *Element) Click(ctx context.Context) error {
	el := e.el.Context(ctx).Timeout(actionTimeout)
	defer el.CancelTimeout()
	err := el.Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		return nil
	}
	if _, jsErr := e.el.Context(ctx).Eval(`() => this.click()`); jsErr == nil {
		return nil
	}
	return err
}

func (e *Element) Input(ctx context.Context, text string) error {
	el := e.el.Context(ctx).Timeout(actionTimeout)
	defer el.CancelTimeout()
	_ = rod.Try(func() { _ = el.SelectAllText() })
	return el.Input(text)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", errors.New("attribute " + name + " not set")
	}
	return *v, nil
}

func (e *Element) Find(ctx context.Context, s campaign.Strategy) ([]campaign.Element, error) {
	el := e.el.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if s.Syntax == campaign.SyntaxXPath {
		els, err = el.ElementsX(s.Expr)
	} else {
		els, err = el.Elements(s.Expr)
	}
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}
