package model

import (
	"net/http"
	"time"
)

// BrowserSession is the cookie set saved after a successful login, keyed by account e-mail.
type BrowserSession struct {
	Account   string    `json:"account"`
	Cookies   []Cookie  `json:"cookies"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Live reports whether at least one cookie is unexpired at now.
func (s BrowserSession) Live(now time.Time) bool {
	for _, c := range s.Cookies {
		if c.Expires == 0 || c.Expires > now.UnixMilli() {
			return true
		}
	}
	return false
}

type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  int64  `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HttpOnly bool   `json:"httpOnly,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

func CookiesFromHTTP(in []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		var expires int64
		if !c.Expires.IsZero() {
			expires = c.Expires.UnixMilli()
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: sameSiteToString(c.SameSite),
		})
	}
	return out
}

func sameSiteToString(s http.SameSite) string {
	switch s {
	case http.SameSiteDefaultMode:
		return "default"
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
