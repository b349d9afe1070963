package domain

import "time"

// State is the derived access state for an account.
type State string

const (
	StateNone    State = "none"
	StateTrial   State = "trial"
	StateActive  State = "active"
	StateGrace   State = "grace"
	StateExpired State = "expired"
)

// Granted reports whether the state permits answering questions.
func (s State) Granted() bool {
	switch s {
	case StateTrial, StateActive, StateGrace:
		return true
	default:
		return false
	}
}

// DeriveState computes the access state for the current record at now.
//
// A record whose period lapsed while still marked active is treated as
// past_due for the grace test; the persisted transition is applied
// lazily by the service and by the periodic sweep, and access must not
// depend on either having run yet.
func DeriveState(rec *SubscriptionRecord, now time.Time, graceWindow time.Duration) State {
	if rec == nil {
		return StateNone
	}
	if now.Before(rec.StartAt) {
		return StateExpired
	}
	if now.Before(rec.ExpiresAt) {
		if rec.Trial {
			return StateTrial
		}
		return StateActive
	}
	if graceWindow > 0 && !rec.Trial && !now.After(rec.ExpiresAt.Add(graceWindow)) {
		return StateGrace
	}
	return StateExpired
}

// GraceUntil returns the end of the grace window for a record, or nil
// when no grace applies.
func GraceUntil(rec *SubscriptionRecord, graceWindow time.Duration) *time.Time {
	if rec == nil || rec.Trial || graceWindow <= 0 {
		return nil
	}
	until := rec.ExpiresAt.Add(graceWindow)
	return &until
}
