package anomaly

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventScoreIncrease EventType = "score_increase"
	EventWarning       EventType = "warning"
	EventLock          EventType = "lock"
	EventUnlock        EventType = "unlock"
	EventDecay         EventType = "decay"
	EventReset         EventType = "reset"
)

// Cause identifies the signal or action behind a score mutation.
type Cause string

const (
	CauseFailedLoginBurst Cause = "failed_login_burst"
	CauseIPChange         Cause = "ip_change"
	CauseRapidRequests    Cause = "rapid_requests"
	CauseDecay            Cause = "decay"
	CauseLockExpired      Cause = "lock_expired"
	CauseAdminReset       Cause = "admin_reset"
	CauseAdminUnlock      Cause = "admin_unlock"
)

// Event is a structured audit record for a single profile mutation. The
// engine emits events as data and leaves routing (log sink, message bus,
// metrics) to the host.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	UserID        string    `json:"user_id"`
	IdentityLabel string    `json:"identity_label,omitempty"`
	OldScore      float64   `json:"old_score"`
	NewScore      float64   `json:"new_score"`
	Cause         Cause     `json:"cause,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

// EventSink receives audit events. Implementations must not block: Emit is
// called from request hot paths while the user's profile lock is held.
type EventSink interface {
	Emit(evt Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// NopSink discards all events.
func NopSink() EventSink { return nopSink{} }

// LogSink writes every event through a structured logger.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(evt Event) {
	entry := s.logger.WithFields(logrus.Fields{
		"event_id":  evt.ID,
		"user_id":   evt.UserID,
		"old_score": evt.OldScore,
		"new_score": evt.NewScore,
		"cause":     evt.Cause,
	})
	switch evt.Type {
	case EventLock:
		entry.WithField("reason", evt.Reason).Warn("account locked")
	case EventWarning:
		entry.Warn("risk score above warning threshold")
	case EventUnlock, EventReset:
		entry.WithField("reason", evt.Reason).Info(string(evt.Type))
	default:
		entry.Debug(string(evt.Type))
	}
}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Emit(evt Event) {
	for _, s := range m {
		s.Emit(evt)
	}
}

func newEvent(t EventType, p *Profile, old float64, cause Cause, reason string, at time.Time) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          t,
		UserID:        p.UserID,
		IdentityLabel: p.IdentityLabel,
		OldScore:      old,
		NewScore:      p.RiskScore,
		Cause:         cause,
		Reason:        reason,
		At:            at,
	}
}
