package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTick(t *testing.T) {
	beforeTicks := testutil.ToFloat64(ticks)
	beforeOverruns := testutil.ToFloat64(tickOverruns)

	ObserveTick(5*time.Millisecond, 30*time.Millisecond)
	ObserveTick(40*time.Millisecond, 30*time.Millisecond)

	assert.Equal(t, beforeTicks+2, testutil.ToFloat64(ticks))
	assert.Equal(t, beforeOverruns+1, testutil.ToFloat64(tickOverruns))
}

func TestLabelledCounters(t *testing.T) {
	before := testutil.ToFloat64(patternErrors.WithLabelValues("blink"))
	IncPatternError("blink")
	IncPatternError("blink")
	assert.Equal(t, before+2, testutil.ToFloat64(patternErrors.WithLabelValues("blink")))

	before = testutil.ToFloat64(patternSwitches.WithLabelValues(ReasonResumed))
	IncPatternSwitch(ReasonResumed)
	assert.Equal(t, before+1, testutil.ToFloat64(patternSwitches.WithLabelValues(ReasonResumed)))

	before = testutil.ToFloat64(controlRequests.WithLabelValues("/pattern", "429"))
	IncControlRequest("/pattern", "429")
	assert.Equal(t, before+1, testutil.ToFloat64(controlRequests.WithLabelValues("/pattern", "429")))
}
