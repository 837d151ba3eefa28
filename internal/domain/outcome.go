package domain

import (
	"fmt"
	"time"
)

type OutcomeKind string

const (
	OutcomeAliveUnchanged OutcomeKind = "alive_unchanged"
	OutcomeAliveRotated   OutcomeKind = "alive_rotated"
	OutcomeDead           OutcomeKind = "dead"
	OutcomeFailed         OutcomeKind = "failed"
)

func (k OutcomeKind) Alive() bool {
	return k == OutcomeAliveUnchanged || k == OutcomeAliveRotated
}

// ProbeOutcome is the classified result of one probe. Only the fields that
// belong to Kind are set: CookieName/NewValue for rotations, Location for
// deaths, Err for failures.
type ProbeOutcome struct {
	Index      int
	Email      string
	Kind       OutcomeKind
	StatusCode int
	CookieName string
	NewValue   string
	Location   string
	Err        error
	Duration   time.Duration
}

func Unchanged(status int) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeAliveUnchanged, StatusCode: status}
}

func Rotated(status int, name, value string) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeAliveRotated, StatusCode: status, CookieName: name, NewValue: value}
}

func Dead(status int, location string) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeDead, StatusCode: status, Location: location}
}

func Failed(status int, err error) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeFailed, StatusCode: status, Err: err}
}

// Error reports the outcome as an error for the Dead and Failed kinds.
func (o ProbeOutcome) Error() error {
	switch o.Kind {
	case OutcomeDead:
		return fmt.Errorf("%w: redirected to %s", ErrSessionDead, o.Location)
	case OutcomeFailed:
		if o.Err == nil {
			return ErrProbeFailed
		}
		return fmt.Errorf("%w: %w", ErrProbeFailed, o.Err)
	default:
		return nil
	}
}

func (o ProbeOutcome) String() string {
	switch o.Kind {
	case OutcomeAliveRotated:
		return fmt.Sprintf("rotated(%s)", o.CookieName)
	case OutcomeDead:
		return fmt.Sprintf("dead(%s)", o.Location)
	case OutcomeFailed:
		return fmt.Sprintf("failed(%v)", o.Err)
	default:
		return string(o.Kind)
	}
}
