package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Document is the full persisted keeper state. The order of Accounts is
// significant because ActiveAccountIndex points into it.
type Document struct {
	Accounts           []Account
	ActiveAccountIndex *int
	CurrentServerID    string
	LastSyncTime       time.Time
	// Extra holds top-level fields the keeper does not use.
	Extra map[string]json.RawMessage
}

func (d Document) Clone() Document {
	out := d
	if d.Accounts != nil {
		out.Accounts = make([]Account, len(d.Accounts))
		for i, account := range d.Accounts {
			out.Accounts[i] = account.Clone()
		}
	}
	if d.ActiveAccountIndex != nil {
		idx := *d.ActiveAccountIndex
		out.ActiveAccountIndex = &idx
	}
	if d.Extra != nil {
		out.Extra = maps.Clone(d.Extra)
	}
	return out
}

func (d Document) Validate() error {
	if d.ActiveAccountIndex == nil {
		return nil
	}
	idx := *d.ActiveAccountIndex
	if idx < 0 || idx >= len(d.Accounts) {
		return fmt.Errorf("%w: active_account_index %d with %d accounts", ErrMalformedDocument, idx, len(d.Accounts))
	}
	return nil
}

// ActiveAccount returns the designated active account, if any.
func (d Document) ActiveAccount() (Account, int, bool) {
	if d.ActiveAccountIndex == nil {
		return Account{}, -1, false
	}
	idx := *d.ActiveAccountIndex
	if idx < 0 || idx >= len(d.Accounts) {
		return Account{}, -1, false
	}
	return d.Accounts[idx], idx, true
}

func (d Document) IsActive(index int) bool {
	return d.ActiveAccountIndex != nil && *d.ActiveAccountIndex == index
}

// TargetServerID resolves which server an account should be probed against:
// its own server id, else the document server id when it is the active one.
func (d Document) TargetServerID(index int) string {
	if index < 0 || index >= len(d.Accounts) {
		return ""
	}
	if id := d.Accounts[index].ServerID; id != "" {
		return id
	}
	if d.IsActive(index) {
		return d.CurrentServerID
	}
	return ""
}
