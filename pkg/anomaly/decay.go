package anomaly

import (
	"context"
	"time"
)

// materialDecay is the minimum number of points a single decay pass must
// remove from a profile before an audit event is emitted for it.
const materialDecay = 1.0

// StartDecay launches the background decay task on the configured interval.
// It stops when ctx is cancelled or Stop is called.
func (e *Engine) StartDecay(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.cfg.DecayInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.DecayTick(ctx); err != nil {
					e.logger.WithError(err).Error("decay sweep aborted")
				}
			}
		}
	}()
}

// Stop cancels the decay task and waits for the in-flight sweep to finish.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

// DecayTick sweeps every profile once: scores shrink in proportion to the
// time elapsed since their last mutation, and expired locks are cleared even
// for profiles receiving no traffic. Each profile is handled in its own short
// critical section so the sweep never starves request-path mutations, and the
// sweep itself is cancellable between profiles.
func (e *Engine) DecayTick(ctx context.Context) error {
	ids, err := e.store.Keys(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		e.decayProfile(ctx, id)
	}
	return nil
}

func (e *Engine) decayProfile(ctx context.Context, userID string) {
	unlock := e.locks.lock(userID)
	defer unlock()

	p, err := e.store.Get(ctx, userID)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("decay: failed to load profile")
		return
	}
	if p == nil {
		return
	}

	now := e.nowFn()
	changed := e.expireLock(p, now)

	if p.RiskScore > 0 {
		minutes := now.Sub(p.LastScoreUpdate).Minutes()
		if minutes > 0 {
			old := p.RiskScore
			amount := p.RiskScore * e.cfg.DecayFraction * minutes
			p.RiskScore -= amount
			if p.RiskScore < 0 {
				p.RiskScore = 0
			}
			p.LastScoreUpdate = now
			changed = true
			if old-p.RiskScore >= materialDecay {
				e.sink.Emit(newEvent(EventDecay, p, old, CauseDecay, "", now))
			}
		}
	}

	if changed {
		e.persist(ctx, p)
	}
}
