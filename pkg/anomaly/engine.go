package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const lockedReason = "account is temporarily locked due to suspicious activity"

// Decision is the synchronous outcome of a recording operation.
type Decision struct {
	RiskScore float64 `json:"risk_score"`
	Locked    bool    `json:"locked"`
	Warning   bool    `json:"warning,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// Metrics is the aggregate snapshot over all profiles.
type Metrics struct {
	TotalProfiles int     `json:"total_profiles"`
	LockedCount   int     `json:"locked_count"`
	HighRiskCount int     `json:"high_risk_count"`
	AverageScore  float64 `json:"average_score"`
}

// Engine owns all per-user behavioral profiles, scores discrete signal events
// and transitions accounts between unlocked and locked states. It performs no
// I/O of its own beyond the configured ProfileStore and never panics on the
// request path: store failures are logged and the caller gets a permissive
// zero decision.
type Engine struct {
	cfg    Config
	store  ProfileStore
	locks  keyedMutex
	logger *logrus.Logger
	sink   EventSink
	nowFn  func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithEventSink routes structured audit events to the given sink.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithTimeProvider overrides the clock. Tests use this to fast-forward past
// windows and lock expiries.
func WithTimeProvider(nowFn func() time.Time) Option {
	return func(e *Engine) { e.nowFn = nowFn }
}

// NewEngine validates cfg and builds an engine around the given store.
func NewEngine(cfg Config, store ProfileStore, logger *logrus.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("engine requires a profile store")
	}
	e := &Engine{
		cfg:    cfg,
		store:  store,
		logger: logger,
		sink:   NopSink(),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's tuning.
func (e *Engine) Config() Config {
	return e.cfg
}

// RecordLoginAttempt scores one login attempt for userID. sourceIP is the
// attempt's origin; success reports whether the credential check passed.
// Callers translate a locked decision into their own rejection.
func (e *Engine) RecordLoginAttempt(ctx context.Context, userID, identityLabel, sourceIP string, success bool) Decision {
	now := e.nowFn()
	unlock := e.locks.lock(userID)
	defer unlock()

	p, err := e.fetchOrCreate(ctx, userID, identityLabel, now)
	if err != nil {
		return Decision{}
	}

	if done, decision := e.shortCircuitLocked(ctx, p, now); done {
		return decision
	}

	scored := false
	if !success {
		p.FailedLogins = append(p.FailedLogins, FailedLogin{At: now, SourceIP: sourceIP})
		p.pruneFailedLogins(now, e.cfg.FailedLoginWindow)
		excess := len(p.FailedLogins) - (e.cfg.FailedLoginThreshold - 1)
		if excess > 0 {
			e.addScore(p, float64(excess)*e.cfg.FailedLoginPenalty, CauseFailedLoginBurst, now)
			scored = true
		}
	} else {
		// A successful login proves the credential; the failed-attempt signal
		// resets entirely rather than decaying.
		p.FailedLogins = nil
	}

	p.pruneRecentIPs(now, e.cfg.IPChangeWindow)
	if len(p.RecentIPs) > 0 && !p.knownIP(sourceIP) {
		e.addScore(p, e.cfg.IPChangePenalty, CauseIPChange, now)
		scored = true
	}
	p.RecentIPs = append(p.RecentIPs, IPSighting{SourceIP: sourceIP, At: now})

	decision := e.finishMutation(p, scored, now)
	e.persist(ctx, p)
	return decision
}

// RecordUserAction scores one authenticated action for userID.
func (e *Engine) RecordUserAction(ctx context.Context, userID, identityLabel string) Decision {
	now := e.nowFn()
	unlock := e.locks.lock(userID)
	defer unlock()

	p, err := e.fetchOrCreate(ctx, userID, identityLabel, now)
	if err != nil {
		return Decision{}
	}

	if done, decision := e.shortCircuitLocked(ctx, p, now); done {
		return decision
	}

	scored := false
	p.RequestTimes = append(p.RequestTimes, now)
	p.pruneRequestTimes(now, e.cfg.RapidRequestWindow)
	if len(p.RequestTimes) >= e.cfg.RapidRequestThreshold {
		e.addScore(p, e.cfg.RapidRequestPenalty, CauseRapidRequests, now)
		scored = true
	}

	decision := e.finishMutation(p, scored, now)
	e.persist(ctx, p)
	return decision
}

// GetStatus returns a diagnostic snapshot, or ErrProfileNotFound for a user
// the engine has never seen. An expired lock is cleared as a side effect.
func (e *Engine) GetStatus(ctx context.Context, userID string) (*Snapshot, error) {
	now := e.nowFn()
	unlock := e.locks.lock(userID)
	defer unlock()

	p, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	if e.expireLock(p, now) {
		e.persist(ctx, p)
	}
	return p.snapshot(), nil
}

// ResetRiskScore zeroes the score, clears the failed-login history and
// unlocks unconditionally. The caller is responsible for logging the actor
// behind the override; reason is carried on the emitted audit event.
func (e *Engine) ResetRiskScore(ctx context.Context, userID, reason string) error {
	now := e.nowFn()
	unlock := e.locks.lock(userID)
	defer unlock()

	p, err := e.store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if p == nil {
		return ErrProfileNotFound
	}

	old := p.RiskScore
	p.RiskScore = 0
	p.LastScoreUpdate = now
	p.FailedLogins = nil
	p.Locked = false
	p.LockExpiresAt = time.Time{}
	if err := e.store.Put(ctx, p); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	e.sink.Emit(newEvent(EventReset, p, old, CauseAdminReset, reason, now))
	return nil
}

// UnlockAccount clears the lock without touching the score, which continues
// to decay normally afterwards.
func (e *Engine) UnlockAccount(ctx context.Context, userID, reason string) error {
	now := e.nowFn()
	unlock := e.locks.lock(userID)
	defer unlock()

	p, err := e.store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if p == nil {
		return ErrProfileNotFound
	}

	p.Locked = false
	p.LockExpiresAt = time.Time{}
	if err := e.store.Put(ctx, p); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	e.sink.Emit(newEvent(EventUnlock, p, p.RiskScore, CauseAdminUnlock, reason, now))
	return nil
}

// GetMetrics aggregates a monitoring snapshot over all profiles.
func (e *Engine) GetMetrics(ctx context.Context) (Metrics, error) {
	ids, err := e.store.Keys(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to list profiles: %w", err)
	}

	var m Metrics
	var total float64
	for _, id := range ids {
		p, err := e.store.Get(ctx, id)
		if err != nil || p == nil {
			continue
		}
		m.TotalProfiles++
		total += p.RiskScore
		if p.Locked {
			m.LockedCount++
		}
		if p.RiskScore >= e.cfg.WarningThreshold {
			m.HighRiskCount++
		}
	}
	if m.TotalProfiles > 0 {
		m.AverageScore = total / float64(m.TotalProfiles)
	}
	return m, nil
}

// fetchOrCreate loads the profile under the caller-held keyed lock, creating
// it lazily on first sight. Store failures fail open with a nil profile.
func (e *Engine) fetchOrCreate(ctx context.Context, userID, identityLabel string, now time.Time) (*Profile, error) {
	p, err := e.store.Get(ctx, userID)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Error("failed to load profile, failing open")
		return nil, err
	}
	if p == nil {
		p = newProfile(userID, identityLabel, now)
	} else if identityLabel != "" {
		p.IdentityLabel = identityLabel
	}
	p.LastSeen = now
	return p, nil
}

// shortCircuitLocked applies lazy lock expiry. While a lock holds, recording
// operations return immediately: locked accounts accumulate no further score.
func (e *Engine) shortCircuitLocked(ctx context.Context, p *Profile, now time.Time) (bool, Decision) {
	if !p.Locked {
		return false, Decision{}
	}
	if e.expireLock(p, now) {
		return false, Decision{}
	}
	e.persist(ctx, p)
	return true, Decision{RiskScore: p.RiskScore, Locked: true, Reason: lockedReason}
}

// expireLock clears a lock whose expiry has passed and reports whether it did.
func (e *Engine) expireLock(p *Profile, now time.Time) bool {
	if !p.Locked || !now.After(p.LockExpiresAt) {
		return false
	}
	p.Locked = false
	p.LockExpiresAt = time.Time{}
	e.sink.Emit(newEvent(EventUnlock, p, p.RiskScore, CauseLockExpired, "lock expired", now))
	return true
}

// addScore applies a penalty, clamped to [0, MaxRiskScore], and stamps the
// mutation time used by the next decay pass.
func (e *Engine) addScore(p *Profile, points float64, cause Cause, now time.Time) {
	old := p.RiskScore
	p.RiskScore += points
	if p.RiskScore > e.cfg.MaxRiskScore {
		p.RiskScore = e.cfg.MaxRiskScore
	}
	p.LastScoreUpdate = now
	e.sink.Emit(newEvent(EventScoreIncrease, p, old, cause, "", now))
}

// finishMutation runs the threshold checks shared by both recording paths.
// The lock transition requires an actual score mutation in this operation:
// a call that applies no penalty never locks, even when a stale score from
// before an expired lock still sits above the threshold.
func (e *Engine) finishMutation(p *Profile, scored bool, now time.Time) Decision {
	if scored && p.RiskScore >= e.cfg.RiskThreshold {
		p.Locked = true
		p.LockExpiresAt = now.Add(e.cfg.LockDuration)
		e.sink.Emit(newEvent(EventLock, p, p.RiskScore, "", lockedReason, now))
		return Decision{RiskScore: p.RiskScore, Locked: true, Reason: lockedReason}
	}
	if p.RiskScore >= e.cfg.WarningThreshold {
		e.sink.Emit(newEvent(EventWarning, p, p.RiskScore, "", "", now))
		return Decision{RiskScore: p.RiskScore, Warning: true}
	}
	return Decision{RiskScore: p.RiskScore}
}

func (e *Engine) persist(ctx context.Context, p *Profile) {
	if err := e.store.Put(ctx, p); err != nil {
		e.logger.WithError(err).WithField("user_id", p.UserID).Error("failed to persist profile")
	}
}
