package domain

import (
	"encoding/json"
	"maps"
)

// DefaultSessionCookie is the cookie the target service uses to carry the session.
const DefaultSessionCookie = "BOXTOPLAY_SESSION"

type Account struct {
	Email    string
	Cookies  map[string]string
	ServerID string
	// Extra holds fields written by other tools; they are kept verbatim.
	Extra map[string]json.RawMessage
}

func (a Account) Cookie(name string) string {
	if a.Cookies == nil {
		return ""
	}
	return a.Cookies[name]
}

// Clone returns a copy that shares no mutable state with a.
func (a Account) Clone() Account {
	out := a
	if a.Cookies != nil {
		out.Cookies = maps.Clone(a.Cookies)
	}
	if a.Extra != nil {
		out.Extra = maps.Clone(a.Extra)
	}
	return out
}

// DisplayName returns the local part of the account email, or the whole
// value when it does not look like an address.
func (a Account) DisplayName() string {
	for i := 0; i < len(a.Email); i++ {
		if a.Email[i] == '@' {
			return a.Email[:i]
		}
	}
	return a.Email
}

// ProbeTarget is everything a prober needs about one account, captured at
// the start of a cycle.
type ProbeTarget struct {
	Index    int
	Account  Account
	ServerID string
}
