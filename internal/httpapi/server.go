package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"outreach_engine/internal/campaign"
	"outreach_engine/internal/config"
	"outreach_engine/internal/engine"
	"outreach_engine/internal/logbus"
	"outreach_engine/internal/metrics"
	"outreach_engine/internal/model"
	"outreach_engine/internal/notify"
	"outreach_engine/internal/store/sqlite"
	"outreach_engine/internal/ws"
)

const maskedSecret = "******"

type Options struct {
	Cfg     config.Config
	Bus     *logbus.Bus
	Store   *sqlite.Store
	Engine  *engine.Engine
	Metrics *metrics.Collector
}

type Server struct {
	cfg     config.Config
	bus     *logbus.Bus
	store   *sqlite.Store
	engine  *engine.Engine
	metrics *metrics.Collector
	ws      *ws.Handler
}

func New(opts Options) *Server {
	return &Server{
		cfg:     opts.Cfg,
		bus:     opts.Bus,
		store:   opts.Store,
		engine:  opts.Engine,
		metrics: opts.Metrics,
		ws:      ws.NewHandler(opts.Bus, opts.Cfg.Server.Cors.AllowOrigins),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/ws", s.ws)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/tasks", s.handleTasks)
	api.HandleFunc("/api/v1/tasks/get", s.handleTaskGet)
	api.HandleFunc("/api/v1/tasks/post", s.submitHandler(model.TaskKindPost))
	api.HandleFunc("/api/v1/tasks/connect", s.submitHandler(model.TaskKindConnect))
	api.HandleFunc("/api/v1/tasks/messaging", s.submitHandler(model.TaskKindMessaging))
	api.HandleFunc("/api/v1/tasks/cancel", s.handleTaskCancel)
	api.HandleFunc("/api/v1/tasks/stop-all", s.handleStopAll)
	api.HandleFunc("/api/v1/engine/state", s.handleEngineState)
	api.HandleFunc("/api/v1/logs", s.handleLogs)
	api.HandleFunc("/api/v1/categories", s.handleCategories)
	api.HandleFunc("/api/v1/sessions", s.handleSessions)
	api.HandleFunc("/api/v1/settings/email", s.handleEmailSettings)
	api.HandleFunc("/api/v1/settings/email/test", s.handleEmailTest)

	mux.Handle("/api/", corsMiddleware(s.cfg.Server.Cors, s.instrument(api)))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type submitPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Keyword  string `json:"keyword,omitempty"`
	Budget   int    `json:"budget,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Industry string `json:"industry,omitempty"`
	SkipPost bool   `json:"skipPost,omitempty"`
}

func (s *Server) submitHandler(kind model.TaskKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body submitPayload
		if err := readJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		task, err := s.engine.Submit(r.Context(), engine.Request{
			Kind:        kind,
			Credentials: campaign.Credentials{Email: body.Email, Password: body.Password},
			Keyword:     body.Keyword,
			Budget:      body.Budget,
			Topic:       body.Topic,
			Industry:    body.Industry,
			SkipPost:    body.SkipPost,
		})
		switch {
		case errors.Is(err, engine.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err)
		case err != nil:
			writeError(w, http.StatusBadRequest, err)
		default:
			writeJSON(w, http.StatusAccepted, map[string]any{"data": task})
		}
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	kind := model.TaskKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind != "" && !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown kind"})
		return
	}
	limit, err := parseInt(r.URL.Query().Get("limit"), 100)
	if err != nil || limit <= 0 || limit > 1000 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be between 1 and 1000"})
		return
	}
	tasks, err := s.store.ListTasks(r.Context(), kind, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tasks})
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id is required"})
		return
	}
	task, err := s.store.GetTask(r.Context(), id)
	if errors.Is(err, sqlite.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": task})
}

func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.Cancel(strings.TrimSpace(body.ID)); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.engine.StopAll(ctx); err != nil {
		writeError(w, http.StatusGatewayTimeout, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.State()})
}

func (s *Server) handleEngineState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.State()})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseInt(r.URL.Query().Get("limit"), 200)
	if err != nil || limit <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
		return
	}
	logs := make([]logbus.Message, 0, limit)
	for _, msg := range s.bus.Snapshot() {
		if msg.Type == logbus.TypeLog {
			logs = append(logs, msg)
		}
	}
	if len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": logs})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	budget := s.cfg.Campaign.TotalBudget
	cats := s.cfg.Campaign.Categories
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"budget":            budget,
		"perCategoryTarget": campaign.PerCategoryTarget(budget, len(cats)),
		"categories":        cats,
	}})
}

type sessionImportPayload struct {
	Account string `json:"account"`
	// Cookie is a raw Cookie header copied from a logged-in browser, e.g. "li_at=...; JSESSIONID=...".
	Cookie string `json:"cookie"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		account := strings.TrimSpace(r.URL.Query().Get("account"))
		if account == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "account is required"})
			return
		}
		sess, ok, err := s.store.GetBrowserSession(r.Context(), account)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "no saved session"})
			return
		}
		names := make([]string, 0, len(sess.Cookies))
		for _, c := range sess.Cookies {
			names = append(names, c.Name)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"account":   sess.Account,
			"updatedAt": sess.UpdatedAt,
			"live":      sess.Live(time.Now()),
			"cookies":   names,
		}})
	case http.MethodPost:
		var body sessionImportPayload
		if err := readJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sess, err := s.importSession(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.store.SaveBrowserSession(r.Context(), sess); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.bus.Log("info", "browser session imported", map[string]any{"account": sess.Account, "cookies": len(sess.Cookies)})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodDelete:
		account := strings.TrimSpace(r.URL.Query().Get("account"))
		if account == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "account is required"})
			return
		}
		if err := s.store.DeleteBrowserSession(r.Context(), account); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// importSession scopes header cookies to the site domain so the browser accepts them.
func (s *Server) importSession(body sessionImportPayload) (model.BrowserSession, error) {
	account := strings.TrimSpace(body.Account)
	if account == "" {
		return model.BrowserSession{}, errors.New("account is required")
	}
	parsed, err := http.ParseCookie(strings.TrimSpace(body.Cookie))
	if err != nil {
		return model.BrowserSession{}, err
	}
	domain, err := cookieDomain(s.cfg.Browser.LoginURL)
	if err != nil {
		return model.BrowserSession{}, err
	}
	cookies := model.CookiesFromHTTP(parsed)
	for i := range cookies {
		cookies[i].Domain = domain
		cookies[i].Path = "/"
		cookies[i].Secure = true
		cookies[i].SameSite = "none"
	}
	return model.BrowserSession{Account: account, Cookies: cookies, UpdatedAt: time.Now()}, nil
}

func cookieDomain(loginURL string) (string, error) {
	u, err := url.Parse(loginURL)
	if err != nil || u.Hostname() == "" {
		return "", errors.New("browser.loginURL has no host")
	}
	host := u.Hostname()
	parts := strings.Split(host, ".")
	if len(parts) == 1 || net.ParseIP(host) != nil {
		return host, nil
	}
	if len(parts) > 2 {
		host = strings.Join(parts[len(parts)-2:], ".")
	}
	return "." + host, nil
}

type emailSettingsPayload struct {
	Enabled  *bool   `json:"enabled,omitempty"`
	Email    *string `json:"email,omitempty"`
	AuthCode *string `json:"authCode,omitempty"`
	To       *string `json:"to,omitempty"`
}

func maskEmailSettings(v model.EmailSettings) model.EmailSettings {
	if v.AuthCode != "" {
		v.AuthCode = maskedSecret
	}
	return v
}

func (s *Server) handleEmailSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		val, _, err := s.store.GetEmailSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": maskEmailSettings(val)})
	case http.MethodPost:
		var body emailSettingsPayload
		if err := readJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		current, _, err := s.store.GetEmailSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		next := current
		if body.Enabled != nil {
			next.Enabled = *body.Enabled
		}
		if body.Email != nil {
			next.Email = strings.TrimSpace(*body.Email)
		}
		if body.To != nil {
			next.To = strings.TrimSpace(*body.To)
		}
		if body.AuthCode != nil {
			ac := strings.TrimSpace(*body.AuthCode)
			if ac != maskedSecret {
				next.AuthCode = ac
			}
		}
		if err := notify.ValidateEmailSettings(next); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		saved, err := s.store.UpsertEmailSettings(r.Context(), next)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": maskEmailSettings(saved)})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleEmailTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	val, _, err := s.store.GetEmailSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	err = notify.SendSummaryEmail(ctx, s.cfg.Notify, val, []notify.CampaignFinishedEvent{{
		At:      time.Now().UnixMilli(),
		TaskID:  "test",
		Kind:    model.TaskKindConnect,
		Account: val.Email,
		Status:  model.CampaignCompleted,
		Message: "test message: sent 0 of 0 outreach actions",
	}})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func parseInt(v string, def int) (int, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}
