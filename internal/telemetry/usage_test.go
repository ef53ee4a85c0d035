package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/podrewind/guest-engine/internal/model"
	"github.com/podrewind/guest-engine/internal/store"
)

func TestRecorder_AccumulatesDailyUsage(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	r := NewRecorder(st)
	r.nowFunc = func() time.Time {
		return time.Date(2026, time.August, 23, 10, 0, 0, 0, time.UTC)
	}

	r.RecordExtraction(model.MethodLLM, 250, 0.003)
	r.RecordExtraction(model.MethodLLM, 100, 0.001)
	r.RecordExtraction(model.MethodHeuristic, 0, 0)
	r.Wait()

	units, costUSD, episodes := st.DailyUsage("2026-08-23", model.MethodLLM)
	assert.Equal(t, int64(350), units)
	assert.InDelta(t, 0.004, costUSD, 1e-9)
	assert.Equal(t, 2, episodes)

	_, _, episodes = st.DailyUsage("2026-08-23", model.MethodHeuristic)
	assert.Equal(t, 1, episodes)
}

func TestRecorder_NilSafe(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.RecordExtraction(model.MethodLLM, 1, 0.1)
	r.Wait()

	disabled := NewRecorder(nil)
	disabled.RecordExtraction(model.MethodLLM, 1, 0.1)
	disabled.Wait()
}
