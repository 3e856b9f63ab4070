package anomaly_test

import (
	"context"
	"testing"
	"time"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type captureSink struct {
	events []anomaly.Event
}

func (s *captureSink) Emit(evt anomaly.Event) {
	s.events = append(s.events, evt)
}

func (s *captureSink) ofType(t anomaly.EventType) []anomaly.Event {
	var out []anomaly.Event
	for _, evt := range s.events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestEngine(t *testing.T, opts ...anomaly.Option) (*anomaly.Engine, *fakeClock, *captureSink) {
	t.Helper()
	logger := testLogger()

	clock := newFakeClock()
	sink := &captureSink{}

	all := append([]anomaly.Option{
		anomaly.WithTimeProvider(clock.Now),
		anomaly.WithEventSink(sink),
	}, opts...)

	engine, err := anomaly.NewEngine(anomaly.DefaultConfig(), anomaly.NewMemoryStore(0), logger, all...)
	require.NoError(t, err)
	return engine, clock, sink
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	logger := logrus.New()

	cfg := anomaly.DefaultConfig()
	cfg.WarningThreshold = cfg.RiskThreshold + 1

	_, err := anomaly.NewEngine(cfg, anomaly.NewMemoryStore(0), logger)
	assert.Error(t, err)
}

func TestRecordLoginAttempt_FailedLoginThreshold(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	// The first threshold-1 failures inside the window are free.
	for i := 0; i < 2; i++ {
		d := engine.RecordLoginAttempt(ctx, "u1", "u1@example.com", "1.1.1.1", false)
		assert.Zero(t, d.RiskScore)
		assert.False(t, d.Locked)
		clock.Advance(time.Second)
	}

	d := engine.RecordLoginAttempt(ctx, "u1", "u1@example.com", "1.1.1.1", false)
	assert.Equal(t, 10.0, d.RiskScore)
	assert.False(t, d.Locked)
}

func TestRecordLoginAttempt_FourRapidFailures(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	var d anomaly.Decision
	for i := 0; i < 3; i++ {
		d = engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}
	// Third failure crosses the threshold: excess of one.
	assert.Equal(t, 10.0, d.RiskScore)

	d = engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
	// Fourth failure: excess of two on top of the existing ten points.
	assert.Equal(t, 30.0, d.RiskScore)
	assert.False(t, d.Locked)
}

func TestRecordLoginAttempt_SuccessResetsFailureHistory(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
	clock.Advance(time.Second)
	engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
	clock.Advance(time.Second)

	d := engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", true)
	assert.Zero(t, d.RiskScore)
	clock.Advance(time.Second)

	// After a success the next failure counts as failure #1, not #3.
	d = engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
	assert.Zero(t, d.RiskScore)
}

func TestRecordLoginAttempt_FailuresOutsideWindowIgnored(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
	engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)

	clock.Advance(6 * time.Minute)

	d := engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
	assert.Zero(t, d.RiskScore)
}

func TestRecordLoginAttempt_IPChange(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	// First sighting: the known-IP set is empty, no penalty possible.
	d := engine.RecordLoginAttempt(ctx, "u1", "e", "203.0.113.7", true)
	assert.Zero(t, d.RiskScore)
	clock.Advance(time.Minute)

	d = engine.RecordLoginAttempt(ctx, "u1", "e", "198.51.100.9", true)
	assert.Equal(t, 15.0, d.RiskScore)
	clock.Advance(time.Minute)

	// Both IPs are now known within the window.
	d = engine.RecordLoginAttempt(ctx, "u1", "e", "203.0.113.7", true)
	assert.Equal(t, 15.0, d.RiskScore)
}

func TestRecordLoginAttempt_IPForgottenAfterWindow(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	engine.RecordLoginAttempt(ctx, "u1", "e", "203.0.113.7", true)
	clock.Advance(2 * time.Hour)

	// The only remembered IP fell out of the window, so the set is empty
	// again and a new IP is a first sighting.
	d := engine.RecordLoginAttempt(ctx, "u1", "e", "198.51.100.9", true)
	assert.Zero(t, d.RiskScore)
}

func TestRecordUserAction_RapidRequestThreshold(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	var d anomaly.Decision
	for i := 0; i < 9; i++ {
		d = engine.RecordUserAction(ctx, "u1", "e")
		clock.Advance(time.Second)
	}
	assert.Zero(t, d.RiskScore)

	d = engine.RecordUserAction(ctx, "u1", "e")
	assert.Equal(t, 20.0, d.RiskScore)
}

func TestRecordUserAction_WindowSlides(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		engine.RecordUserAction(ctx, "u1", "e")
		clock.Advance(time.Second)
	}

	clock.Advance(2 * time.Minute)

	d := engine.RecordUserAction(ctx, "u1", "e")
	assert.Zero(t, d.RiskScore)
}

func TestWarningThreshold(t *testing.T) {
	engine, clock, sink := newTestEngine(t)
	ctx := context.Background()

	// Five failures: 0, 0, +10, +20, +30 = 60, above warning, below lock.
	var d anomaly.Decision
	for i := 0; i < 5; i++ {
		d = engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 60.0, d.RiskScore)
	assert.True(t, d.Warning)
	assert.False(t, d.Locked)
	assert.NotEmpty(t, sink.ofType(anomaly.EventWarning))
}

func TestLockTriggerAndShortCircuit(t *testing.T) {
	engine, clock, sink := newTestEngine(t)
	ctx := context.Background()

	// Six failures: 0, 0, 10, 30, 60, then 100 after clamping.
	var d anomaly.Decision
	for i := 0; i < 6; i++ {
		d = engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}
	require.True(t, d.Locked)
	assert.Equal(t, 100.0, d.RiskScore)
	assert.NotEmpty(t, d.Reason)
	require.Len(t, sink.ofType(anomaly.EventLock), 1)

	lockedAt := clock.Now().Add(-time.Second)
	snap, err := engine.GetStatus(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, snap.LockExpiresAt)
	assert.Equal(t, lockedAt.Add(15*time.Minute), *snap.LockExpiresAt)

	// While locked, neither operation accumulates further score.
	d = engine.RecordLoginAttempt(ctx, "u1", "e", "9.9.9.9", false)
	assert.True(t, d.Locked)
	assert.Equal(t, 100.0, d.RiskScore)

	d = engine.RecordUserAction(ctx, "u1", "e")
	assert.True(t, d.Locked)
	assert.Equal(t, 100.0, d.RiskScore)
}

func TestLazyAutoUnlock(t *testing.T) {
	engine, clock, sink := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}

	clock.Advance(16 * time.Minute)

	// No decay tick has run; the recording call itself expires the lock and
	// processes its own signal.
	d := engine.RecordUserAction(ctx, "u1", "e")
	assert.False(t, d.Locked)
	assert.NotEmpty(t, sink.ofType(anomaly.EventUnlock))

	snap, err := engine.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, snap.Locked)
	assert.Nil(t, snap.LockExpiresAt)
	assert.Equal(t, 1, snap.RecentRequests)
}

func TestScoreClamping(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := anomaly.DefaultConfig()
	var d anomaly.Decision
	for i := 0; i < 20; i++ {
		d = engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		assert.GreaterOrEqual(t, d.RiskScore, 0.0)
		assert.LessOrEqual(t, d.RiskScore, cfg.MaxRiskScore)
		clock.Advance(time.Second)
	}
}

func TestGetStatus_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.GetStatus(context.Background(), "ghost")
	assert.ErrorIs(t, err, anomaly.ErrProfileNotFound)
}

func TestResetRiskScore(t *testing.T) {
	engine, clock, sink := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}

	require.NoError(t, engine.ResetRiskScore(ctx, "u1", "support ticket 4242"))
	require.Len(t, sink.ofType(anomaly.EventReset), 1)

	snap, err := engine.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, snap.RiskScore)
	assert.False(t, snap.Locked)
	assert.Zero(t, snap.FailedLogins)

	// A single failed login after the reset behaves as failure #1.
	d := engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
	assert.Zero(t, d.RiskScore)
	assert.False(t, d.Locked)
}

func TestResetRiskScore_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	err := engine.ResetRiskScore(context.Background(), "ghost", "why not")
	assert.ErrorIs(t, err, anomaly.ErrProfileNotFound)
}

func TestUnlockAccount_KeepsScore(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}

	require.NoError(t, engine.UnlockAccount(ctx, "u1", "false positive"))

	snap, err := engine.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, snap.Locked)
	assert.Equal(t, 100.0, snap.RiskScore)
}

func TestGetMetrics(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	// u1 ends locked at the clamp, u2 carries ten points, u3 stays clean.
	for i := 0; i < 6; i++ {
		engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}
	for i := 0; i < 3; i++ {
		engine.RecordLoginAttempt(ctx, "u2", "e", "1.1.1.1", false)
		clock.Advance(time.Second)
	}
	engine.RecordLoginAttempt(ctx, "u3", "e", "1.1.1.1", true)

	m, err := engine.GetMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalProfiles)
	assert.Equal(t, 1, m.LockedCount)
	assert.Equal(t, 1, m.HighRiskCount)
	assert.InDelta(t, (100.0+10.0+0.0)/3.0, m.AverageScore, 0.001)
}

func TestConcurrentFailedLogins(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			engine.RecordLoginAttempt(ctx, "u1", "e", "1.1.1.1", false)
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	// No failure is lost to a race: the profile reaches the clamp and locks
	// regardless of interleaving.
	snap, err := engine.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, snap.RiskScore)
	assert.True(t, snap.Locked)
}
