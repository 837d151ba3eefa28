package domain

import "time"

// AccountHealth is what the keeper remembers about an account between cycles.
type AccountHealth struct {
	Index               int
	Email               string
	LastOutcome         OutcomeKind
	LastProbeAt         time.Time
	LastRotationAt      time.Time
	ConsecutiveFailures int
	DeadSince           time.Time
	LastError           string
}

func (h AccountHealth) Dead() bool {
	return !h.DeadSince.IsZero()
}

// Observe folds one probe outcome into the health record.
func (h AccountHealth) Observe(outcome ProbeOutcome, at time.Time) AccountHealth {
	h.Index = outcome.Index
	if outcome.Email != "" {
		h.Email = outcome.Email
	}
	h.LastOutcome = outcome.Kind
	h.LastProbeAt = at

	switch outcome.Kind {
	case OutcomeAliveUnchanged, OutcomeAliveRotated:
		h.ConsecutiveFailures = 0
		h.DeadSince = time.Time{}
		h.LastError = ""
		if outcome.Kind == OutcomeAliveRotated {
			h.LastRotationAt = at
		}
	case OutcomeDead:
		if h.DeadSince.IsZero() {
			h.DeadSince = at
		}
		h.LastError = outcome.Error().Error()
	case OutcomeFailed:
		h.ConsecutiveFailures++
		h.LastError = outcome.Error().Error()
	}

	return h
}
