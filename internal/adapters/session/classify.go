package session

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

var DefaultLoginMarkers = []string{"login", "connexion", "signin", "auth", "authentification"}

// Classify turns one response into a probe outcome. It never reads the body
// and never touches shared state.
//
// A redirect to a login page is Dead. Otherwise a 2xx or 3xx is alive, and a
// Set-Cookie for cookieName with a value different from current is a
// rotation. A cookie being cleared is not treated as a rotation. Any other
// status is Failed.
func Classify(resp *http.Response, cookieName, current string, loginMarkers []string) domain.ProbeOutcome {
	if resp == nil {
		return domain.Failed(0, fmt.Errorf("no response"))
	}
	status := resp.StatusCode

	if isRedirect(status) {
		location := resp.Header.Get("Location")
		if isLoginLocation(resolveLocation(resp, location), loginMarkers) {
			return domain.Dead(status, location)
		}
	}

	if status < 200 || status >= 400 {
		return domain.Failed(status, fmt.Errorf("unexpected status %d", status))
	}

	if value, ok := rotatedValue(resp, cookieName, current); ok {
		return domain.Rotated(status, cookieName, value)
	}

	return domain.Unchanged(status)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func rotatedValue(resp *http.Response, cookieName, current string) (string, bool) {
	var value string
	found := false

	// The last matching Set-Cookie wins, as in a browser.
	for _, cookie := range resp.Cookies() {
		if cookie.Name != cookieName {
			continue
		}
		if cookie.Value == "" || cookie.Value == "deleted" || cookie.MaxAge < 0 {
			found = false
			continue
		}
		value = cookie.Value
		found = true
	}

	if !found || value == current {
		return "", false
	}
	return value, true
}

func resolveLocation(resp *http.Response, location string) *url.URL {
	parsed, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.ResolveReference(parsed)
	}
	return parsed
}

// isLoginLocation reports whether a path segment names a login page. A segment
// matches a marker when it equals it or continues with a separator, so
// "login", "login.php" and "signin-oidc" match while "authors" does not.
func isLoginLocation(location *url.URL, markers []string) bool {
	if location == nil {
		return false
	}
	if len(markers) == 0 {
		markers = DefaultLoginMarkers
	}

	for _, segment := range strings.Split(strings.ToLower(location.Path), "/") {
		if segment == "" {
			continue
		}
		for _, marker := range markers {
			marker = strings.ToLower(strings.TrimSpace(marker))
			if marker != "" && segmentMatches(segment, marker) {
				return true
			}
		}
	}
	return false
}

func segmentMatches(segment, marker string) bool {
	rest, ok := strings.CutPrefix(segment, marker)
	if !ok {
		return false
	}
	return rest == "" || strings.ContainsRune("-_.", rune(rest[0]))
}
