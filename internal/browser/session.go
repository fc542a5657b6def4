package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
	"outreach_engine/internal/utils"
)

// SessionStore persists login cookies per account.
type SessionStore interface {
	GetBrowserSession(ctx context.Context, account string) (model.BrowserSession, bool, error)
	SaveBrowserSession(ctx context.Context, s model.BrowserSession) error
}

type Options struct {
	Browser  config.BrowserConfig
	Sessions SessionStore
	Bus      *logbus.Bus
}

// Launcher opens one isolated browser session per campaign.
type Launcher struct {
	opts Options
}

func NewLauncher(opts Options) *Launcher {
	return &Launcher{opts: opts}
}

func (l *Launcher) Open(ctx context.Context) (campaign.Session, error) {
	cfg := l.opts.Browser
	s := &Session{opts: l.opts}

	controlURL := strings.TrimSpace(cfg.ControlURL)
	if controlURL == "" {
		lch := launcher.New().
			Headless(cfg.Headless).
			Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
		if cfg.BinPath != "" {
			lch = lch.Bin(cfg.BinPath)
		}
		u, err := lch.Launch()
		if err != nil {
			lch.Kill()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		s.launcher = lch
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		s.kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	s.browser = b
	s.owned = s.launcher != nil

	incognito, err := b.Incognito()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	s.incognito = incognito

	var page *rod.Page
	if err := rod.Try(func() {
		page = stealth.MustPage(incognito)
	}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	ua := utils.NormalizeDesktopUserAgent(cfg.UserAgent)
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.WindowWidth,
		Height:            cfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return s, nil
}

type Session struct {
	opts Options

	launcher  *launcher.Launcher
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	// owned is false when attached to an external browser through controlURL.
	owned bool

	closeOnce sync.Once
	closeErr  error
}

func (s *Session) Page() campaign.Page {
	if s.page == nil {
		return nil
	}
	return &Page{page: s.page}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.opts.Browser.NavigationTimeout())
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (s *Session) WaitReady(ctx context.Context, target campaign.Target, timeout time.Duration) error {
	_, err := campaign.NewResolver(s.Page(), s.opts.Bus).WaitResolve(ctx, target, timeout)
	return err
}

// Login restores saved cookies when they still reach the feed, otherwise submits the login form.
func (s *Session) Login(ctx context.Context, creds campaign.Credentials) error {
	if s.restore(ctx, creds.Email) {
		s.log("info", "session restored from cookies", map[string]any{"account": creds.Email})
		return nil
	}
	if creds.Email == "" || creds.Password == "" {
		return fmt.Errorf("%w: missing credentials", campaign.ErrLoginFailed)
	}

	cfg := s.opts.Browser
	if err := s.Navigate(ctx, cfg.LoginURL); err != nil {
		return err
	}
	res := campaign.NewResolver(s.Page(), s.opts.Bus)
	email, err := res.WaitResolve(ctx, campaign.LoginEmail, cfg.NavigationTimeout())
	if err != nil {
		return fmt.Errorf("%w: %v", campaign.ErrLoginFailed, err)
	}
	if err := email[0].Input(ctx, creds.Email); err != nil {
		return fmt.Errorf("type e-mail: %w", err)
	}
	password, err := res.Resolve(ctx, campaign.LoginPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", campaign.ErrLoginFailed, err)
	}
	if err := password[0].Input(ctx, creds.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	submit, err := res.Resolve(ctx, campaign.LoginSubmit)
	if err != nil {
		return fmt.Errorf("%w: %v", campaign.ErrLoginFailed, err)
	}
	if err := submit[0].Click(ctx); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	landing, err := s.waitLanding(ctx, cfg.LoginSettle())
	if err != nil {
		return err
	}
	if err := classifyLanding(landing); err != nil {
		return err
	}
	s.saveCookies(ctx, creds.Email)
	s.log("info", "logged in", map[string]any{"account": creds.Email})
	return nil
}

// waitLanding polls the page URL until it leaves the login form or settle elapses.
func (s *Session) waitLanding(ctx context.Context, settle time.Duration) (string, error) {
	page := s.Page()
	deadline := time.Now().Add(settle)
	for {
		u := page.URL(ctx)
		if classifyLanding(u) == nil || strings.Contains(u, "checkpoint") {
			return u, nil
		}
		if time.Now().After(deadline) {
			return u, nil
		}
		t := time.NewTimer(500 * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
}

func classifyLanding(u string) error {
	switch {
	case strings.Contains(u, "checkpoint"):
		return fmt.Errorf("%w: verification required", campaign.ErrLoginFailed)
	case strings.Contains(u, "feed"), strings.Contains(u, "dashboard"), strings.Contains(u, "mynetwork"):
		return nil
	default:
		return fmt.Errorf("%w: landed on %q", campaign.ErrLoginFailed, u)
	}
}

func (s *Session) restore(ctx context.Context, account string) bool {
	if s.opts.Sessions == nil || account == "" {
		return false
	}
	saved, ok, err := s.opts.Sessions.GetBrowserSession(ctx, account)
	if err != nil || !ok || !saved.Live(time.Now()) {
		return false
	}
	if err := s.incognito.SetCookies(toCookieParams(saved.Cookies)); err != nil {
		s.log("warn", "restore cookies failed", map[string]any{"account": account, "error": err.Error()})
		return false
	}
	if err := s.Navigate(ctx, s.opts.Browser.FeedURL); err != nil {
		return false
	}
	return classifyLanding(s.Page().URL(ctx)) == nil
}

func (s *Session) saveCookies(ctx context.Context, account string) {
	if s.opts.Sessions == nil || account == "" {
		return
	}
	cookies, err := s.page.Context(ctx).Cookies(nil)
	if err != nil {
		s.log("warn", "read cookies failed", map[string]any{"account": account, "error": err.Error()})
		return
	}
	saved := model.BrowserSession{Account: account, Cookies: fromNetworkCookies(cookies), UpdatedAt: time.Now()}
	if err := s.opts.Sessions.SaveBrowserSession(ctx, saved); err != nil {
		s.log("warn", "save cookies failed", map[string]any{"account": account, "error": err.Error()})
	}
}

// Close releases the page, the incognito context and, when launched here, the browser process.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			errs = append(errs, rod.Try(func() { _ = s.page.Close() }))
		}
		if s.incognito != nil {
			errs = append(errs, s.incognito.Close())
		}
		if s.owned && s.browser != nil {
			errs = append(errs, s.browser.Close())
		}
		s.kill()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *Session) kill() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher = nil
	}
}

func (s *Session) log(level, msg string, fields map[string]any) {
	if s.opts.Bus != nil {
		s.opts.Bus.Log(level, msg, fields)
	}
}
