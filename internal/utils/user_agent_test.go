package utils

import "testing"

func TestNormalizeDesktopUserAgent(t *testing.T) {
	custom := "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36"
	cases := map[string]string{
		"":     defaultDesktopUserAgent,
		"   ":  defaultDesktopUserAgent,
		custom: custom,
		"Mozilla/5.0 (iPhone; CPU iPhone OS 18_7 like Mac OS X) Mobile/15E148": defaultDesktopUserAgent,
		"Mozilla/5.0 (Linux; Android 14) Chrome/125.0 Mobile Safari/537.36":   defaultDesktopUserAgent,
	}
	for in, want := range cases {
		if got := NormalizeDesktopUserAgent(in); got != want {
			t.Fatalf("NormalizeDesktopUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
