// Package platform describes the browser a session view is mounted from.
package platform

import (
	"net/http"
	"strings"
)

// Env implements core.Environment from a request's User-Agent.
type Env struct {
	UserAgent string
	Isolated  bool
}

// FromRequest reads the User-Agent of r. isolated reports whether the
// server sent cross-origin isolation headers for the page.
func FromRequest(r *http.Request, isolated bool) Env {
	return Env{UserAgent: r.UserAgent(), Isolated: isolated}
}

// RestrictedMobileBrowser is true on Android browsers, which cannot render
// several video feeds at once.
func (e Env) RestrictedMobileBrowser() bool {
	return strings.Contains(strings.ToLower(e.UserAgent), "android")
}

func (e Env) ExecutionIsolated() bool { return e.Isolated }

// BrowserName is a coarse browser family used for guest names.
func (e Env) BrowserName() string {
	ua := e.UserAgent
	switch {
	case strings.Contains(ua, "Edg/"):
		return "Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Chrome/"):
		return "Chrome"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	default:
		return "Guest"
	}
}
