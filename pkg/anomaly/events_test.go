package anomaly_test

import (
	"io"
	"testing"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestMultiSinkFansOut(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	sink := anomaly.MultiSink{a, b}

	sink.Emit(anomaly.Event{Type: anomaly.EventLock, UserID: "u1"})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestLogSinkHandlesAllEventTypes(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	sink := anomaly.NewLogSink(logger)

	for _, et := range []anomaly.EventType{
		anomaly.EventScoreIncrease,
		anomaly.EventWarning,
		anomaly.EventLock,
		anomaly.EventUnlock,
		anomaly.EventDecay,
		anomaly.EventReset,
	} {
		sink.Emit(anomaly.Event{Type: et, UserID: "u1"})
	}
}
