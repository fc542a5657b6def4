package browser

import (
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"outreach_engine/internal/model"
)

func fromNetworkCookies(in []*proto.NetworkCookie) []model.Cookie {
	out := make([]model.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		var expires int64
		if c.Expires > 0 {
			expires = int64(float64(c.Expires) * 1000)
		}
		out = append(out, model.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
			SameSite: strings.ToLower(string(c.SameSite)),
		})
	}
	return out
}

func toCookieParams(in []model.Cookie) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(in))
	for _, c := range in {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SameSite: sameSite(c.SameSite),
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(float64(c.Expires) / 1000)
		}
		out = append(out, p)
	}
	return out
}

func sameSite(s string) proto.NetworkCookieSameSite {
	switch s {
	case "strict":
		return proto.NetworkCookieSameSiteStrict
	case "lax":
		return proto.NetworkCookieSameSiteLax
	case "none":
		return proto.NetworkCookieSameSiteNone
	default:
		return ""
	}
}
