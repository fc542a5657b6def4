package campaign

import (
	"context"
	"net/url"
	"time"

	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
)

var scrollSteps = []int{400, 800, 1200, 1600}

// KeywordSearcher runs one keyword search and attempts at most want candidates.
type KeywordSearcher interface {
	SearchAndAttempt(ctx context.Context, keyword string, want int) model.KeywordResult
}

type SearchOptions struct {
	SearchURL    string
	MaxPages     int
	ReadyTimeout time.Duration
	ScrollStep   time.Duration
}

type Search struct {
	session  Session
	discover *Discoverer
	exec     *Executor
	walker   *Walker
	pacer    *Pacer
	bus      *logbus.Bus
	opts     SearchOptions
}

func NewSearch(session Session, discover *Discoverer, exec *Executor, walker *Walker, pacer *Pacer, bus *logbus.Bus, opts SearchOptions) *Search {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 2
	}
	return &Search{session: session, discover: discover, exec: exec, walker: walker, pacer: pacer, bus: bus, opts: opts}
}

func SearchURL(base, keyword string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("keywords", keyword)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Search) SearchAndAttempt(ctx context.Context, keyword string, want int) model.KeywordResult {
	res := model.KeywordResult{Keyword: keyword, Target: want}
	if want <= 0 {
		return res
	}
	if err := s.session.Navigate(ctx, SearchURL(s.opts.SearchURL, keyword)); err != nil {
		s.log("warn", "search navigation failed", map[string]any{"keyword": keyword, "error": err.Error()})
		return res
	}
	if err := s.session.WaitReady(ctx, SearchResultsReady, s.opts.ReadyTimeout); err != nil {
		s.log("warn", "search results not ready", map[string]any{"keyword": keyword, "error": err.Error()})
	}

	for page := 1; page <= s.opts.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		res.Pages = page
		s.loadPage(ctx)

		cands := s.discover.Discover(ctx)
		s.log("info", "result page scanned", map[string]any{"keyword": keyword, "page": page, "candidates": len(cands)})
		for _, c := range cands {
			if res.Sent >= want || ctx.Err() != nil {
				break
			}
			switch s.exec.Attempt(ctx, c, Progress{Sent: res.Sent, Want: want}) {
			case OutcomeSent:
				res.Sent++
			case OutcomeSkipped:
				res.Skipped++
			default:
				res.Failed++
			}
		}

		if res.Sent >= want || page == s.opts.MaxPages {
			break
		}
		if !s.walker.Advance(ctx) {
			s.log("info", "no further result pages", map[string]any{"keyword": keyword, "page": page})
			break
		}
	}
	return res
}

func (s *Search) loadPage(ctx context.Context) {
	page := s.session.Page()
	for _, y := range scrollSteps {
		if err := page.ScrollTo(ctx, y); err != nil {
			return
		}
		if err := s.pacer.Sleep(ctx, s.opts.ScrollStep); err != nil {
			return
		}
	}
}

func (s *Search) log(level, msg string, fields map[string]any) {
	if s.bus != nil {
		s.bus.Log(level, msg, fields)
	}
}
