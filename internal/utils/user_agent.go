package utils

import "strings"

const defaultDesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// DefaultDesktopUserAgent is the UA used when none is configured.
func DefaultDesktopUserAgent() string {
	return defaultDesktopUserAgent
}

// NormalizeDesktopUserAgent keeps a configured desktop UA; empty or mobile values fall back to the default,
// since the site serves a different layout to mobile agents.
func NormalizeDesktopUserAgent(ua string) string {
	v := strings.TrimSpace(ua)
	if v == "" {
		return defaultDesktopUserAgent
	}
	if looksLikeMobileUA(v) {
		return defaultDesktopUserAgent
	}
	return v
}

func looksLikeMobileUA(ua string) bool {
	s := strings.ToLower(ua)
	if strings.Contains(s, "mobile") {
		return true
	}
	if strings.Contains(s, "iphone") || strings.Contains(s, "android") || strings.Contains(s, "ipad") {
		return true
	}
	return false
}
