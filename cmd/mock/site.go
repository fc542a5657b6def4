package main

import (
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

const sessionCookie = "li_at"

type siteOptions struct {
	People     int
	PerPage    int
	Checkpoint bool
}

type person struct {
	ID       string
	Name     string
	Headline string
	// Follow marks creator profiles that only offer Follow.
	Follow  bool
	Pending bool
}

type conversation struct {
	ID       string
	With     string
	Messages []string
}

// site is an in-memory imitation of the pages a campaign drives.
type site struct {
	opts siteOptions

	mu       sync.Mutex
	sessions map[string]struct{}
	invited  map[string]struct{}
	posts    []string
	convs    []*conversation
}

func newSite(opts siteOptions) *site {
	if opts.People <= 0 {
		opts.People = 25
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	return &site{
		opts:     opts,
		sessions: make(map[string]struct{}),
		invited:  make(map[string]struct{}),
		convs: []*conversation{
			{ID: "c1", With: "Dana Reyes", Messages: []string{"Hi! Thanks for connecting. What are you working on these days?"}},
			{ID: "c2", With: "Sam Okafor", Messages: []string{"Great post about automation.", "You: Thanks Sam!"}},
			{ID: "c3", With: "Lee Park", Messages: []string{"Would love to hear more about your AI projects."}},
		},
	}
}

func (s *site) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mock/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("/mock/state", s.handleState)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/checkpoint/challenge", func(w http.ResponseWriter, _ *http.Request) {
		render(w, checkpointPage, nil)
	})
	mux.HandleFunc("/feed/", s.authed(s.handleFeed))
	mux.HandleFunc("/feed/post", s.authed(s.handlePost))
	mux.HandleFunc("/search/results/people/", s.authed(s.handleSearch))
	mux.HandleFunc("/invite", s.authed(s.handleInvite))
	mux.HandleFunc("/messaging/", s.authed(s.handleMessaging))
	mux.HandleFunc("/messaging/send", s.authed(s.handleSend))
	return mux
}

func (s *site) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		s.mu.Lock()
		_, ok := s.sessions[cookieValue(c, err)]
		s.mu.Unlock()
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

func cookieValue(c *http.Cookie, err error) string {
	if err != nil || c == nil {
		return ""
	}
	return c.Value
}

func (s *site) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		render(w, loginPage, nil)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(r.PostFormValue("session_key")) == "" || r.PostFormValue("session_password") == "" {
			http.Redirect(w, r, "/login?error=1", http.StatusFound)
			return
		}
		if s.opts.Checkpoint {
			http.Redirect(w, r, "/checkpoint/challenge", http.StatusFound)
			return
		}
		token := randString(16)
		s.mu.Lock()
		s.sessions[token] = struct{}{}
		s.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
		http.Redirect(w, r, "/feed/", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *site) handleFeed(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	posts := append([]string(nil), s.posts...)
	s.mu.Unlock()
	render(w, feedPage, map[string]any{"Posts": posts})
}

func (s *site) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		http.Error(w, "empty post", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.posts = append(s.posts, body.Text)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *site) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keywords"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	people := s.people(keyword)
	pages := (len(people) + s.opts.PerPage - 1) / s.opts.PerPage
	from := min((page-1)*s.opts.PerPage, len(people))
	to := min(from+s.opts.PerPage, len(people))

	next := ""
	if page < pages {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(page+1))
		next = r.URL.Path + "?" + q.Encode()
	}
	render(w, searchPage, map[string]any{
		"Keyword": keyword,
		"People":  people[from:to],
		"Page":    page,
		"Next":    next,
	})
}

// people derives a stable result list for a keyword. Every fifth profile is follow-only.
func (s *site) people(keyword string) []person {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]person, 0, s.opts.People)
	for i := range s.opts.People {
		id := fmt.Sprintf("%s-%d", url.PathEscape(strings.ToLower(keyword)), i)
		_, pending := s.invited[id]
		out = append(out, person{
			ID:       id,
			Name:     fmt.Sprintf("Member %d", i+1),
			Headline: fmt.Sprintf("%s at Example Corp", keyword),
			Follow:   i%5 == 4,
			Pending:  pending,
		})
	}
	return out
}

func (s *site) handleInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.invited[id] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *site) handleMessaging(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	convs := make([]conversation, 0, len(s.convs))
	for _, c := range s.convs {
		convs = append(convs, conversation{ID: c.ID, With: c.With, Messages: append([]string(nil), c.Messages...)})
	}
	s.mu.Unlock()
	render(w, messagingPage, map[string]any{"Conversations": convs})
}

func (s *site) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.convs {
		if c.ID == body.ID {
			c.Messages = append(c.Messages, "You: "+body.Text)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}
	http.Error(w, "unknown conversation", http.StatusNotFound)
}

func (s *site) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replies := 0
	for _, c := range s.convs {
		for _, m := range c.Messages {
			if strings.HasPrefix(m, "You: ") {
				replies++
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": len(s.sessions),
		"invited":  len(s.invited),
		"posts":    len(s.posts),
		"replies":  replies,
	})
}

func render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func randString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	if n <= 0 {
		return ""
	}
	raw := make([]byte, n)
	_, _ = crand.Read(raw)
	out := make([]byte, n)
	for i := range out {
		out[i] = letters[int(raw[i])%len(letters)]
	}
	return string(out)
}
