package httpapi

import (
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/application"
)

// SessionResponse is the JSON form of application.Info. Cookie values are
// never included, only their fingerprints.
type SessionResponse struct {
	State        string            `json:"state"`
	Keeper       string            `json:"keeper"`
	Document     string            `json:"document,omitempty"`
	ActiveEmail  string            `json:"active_email,omitempty"`
	ActiveIndex  *int              `json:"active_index,omitempty"`
	ServerID     string            `json:"server_id,omitempty"`
	DNS          string            `json:"dns,omitempty"`
	LastSyncTime *time.Time        `json:"last_sync_time,omitempty"`
	LoadError    string            `json:"load_error,omitempty"`
	Accounts     []AccountResponse `json:"accounts"`
	LastCycle    *CycleResponse    `json:"last_cycle,omitempty"`
}

type AccountResponse struct {
	Index               int        `json:"index"`
	Email               string     `json:"email"`
	ServerID            string     `json:"server_id,omitempty"`
	Active              bool       `json:"active"`
	HasSession          bool       `json:"has_session"`
	Fingerprint         string     `json:"fingerprint,omitempty"`
	LastOutcome         string     `json:"last_outcome,omitempty"`
	LastProbeAt         *time.Time `json:"last_probe_at,omitempty"`
	LastRotationAt      *time.Time `json:"last_rotation_at,omitempty"`
	DeadSince           *time.Time `json:"dead_since,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

type CycleResponse struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Skipped    bool      `json:"skipped,omitempty"`
	Rotated    int       `json:"rotated"`
	Dead       int       `json:"dead"`
	Failed     int       `json:"failed"`
	Persisted  bool      `json:"persisted"`
	PersistErr string    `json:"persist_error,omitempty"`
}

func NewSessionResponse(info application.Info) SessionResponse {
	out := SessionResponse{
		State:        string(info.State),
		Keeper:       string(info.KeeperState),
		Document:     info.DocumentName,
		ActiveEmail:  info.ActiveEmail,
		ActiveIndex:  info.ActiveIndex,
		ServerID:     info.ServerID,
		DNS:          info.DNS,
		LastSyncTime: timePtr(info.LastSyncTime),
		LoadError:    info.LoadError,
		Accounts:     make([]AccountResponse, 0, len(info.Accounts)),
	}

	for _, account := range info.Accounts {
		item := AccountResponse{
			Index:       account.Index,
			Email:       account.Email,
			ServerID:    account.ServerID,
			Active:      account.Active,
			HasSession:  account.HasSession,
			Fingerprint: account.Fingerprint,
		}
		if h := account.Health; h != nil {
			item.LastOutcome = string(h.LastOutcome)
			item.LastProbeAt = timePtr(h.LastProbeAt)
			item.LastRotationAt = timePtr(h.LastRotationAt)
			item.DeadSince = timePtr(h.DeadSince)
			item.ConsecutiveFailures = h.ConsecutiveFailures
			item.LastError = h.LastError
		}
		out.Accounts = append(out.Accounts, item)
	}

	if cycle := info.LastCycle; cycle != nil {
		response := NewCycleResponse(*cycle)
		out.LastCycle = &response
	}

	return out
}

func NewCycleResponse(cycle application.CycleReport) CycleResponse {
	out := CycleResponse{
		ID:         cycle.ID,
		StartedAt:  cycle.StartedAt,
		FinishedAt: cycle.FinishedAt,
		Skipped:    cycle.Skipped,
		Rotated:    cycle.Rotated,
		Dead:       cycle.Dead,
		Failed:     cycle.Failed,
		Persisted:  cycle.PersistTriggered && cycle.PersistErr == nil,
	}
	if cycle.PersistErr != nil {
		out.PersistErr = cycle.PersistErr.Error()
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
