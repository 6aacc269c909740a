package metrics

import (
	"testing"

	"wa-group-gateway/internal/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDispatch(t *testing.T) {
	r := NewRecorder()

	r.RecordDispatch("sent", 1)
	r.RecordDispatch("sent", 2)
	r.RecordDispatch("skipped", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.dispatches.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dispatches.WithLabelValues("skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.sendAttempts))
}

func TestObserveState(t *testing.T) {
	r := NewRecorder()

	r.ObserveState(session.StatePairingPending)
	r.ObserveState(session.StateReady)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.sessionState))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("ready")))

	count, err := testutil.GatherAndCount(r.Registry())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
