package metrics

import (
	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/authwatch/authwatch/pkg/infra/prometheus"
)

// PrometheusSink translates engine audit events into Prometheus counters.
// It is registered alongside the log sink so every mutation is observable
// without the engine knowing about metrics at all.
type PrometheusSink struct{}

func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

func (s *PrometheusSink) Emit(evt anomaly.Event) {
	switch evt.Type {
	case anomaly.EventScoreIncrease:
		prometheus.ScorePenaltiesTotal.WithLabelValues(string(evt.Cause)).Inc()
	case anomaly.EventLock:
		prometheus.AccountLocksTotal.Inc()
	case anomaly.EventUnlock, anomaly.EventReset:
		prometheus.AccountUnlocksTotal.WithLabelValues(string(evt.Cause)).Inc()
	case anomaly.EventWarning:
		prometheus.WarningsTotal.Inc()
	case anomaly.EventDecay:
		prometheus.DecayEventsTotal.Inc()
	}
}
