package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/podrewind/guest-engine/internal/model"
)

func attempt(ok bool) model.ExtractionAttempt {
	return model.ExtractionAttempt{
		Method:    model.MethodLLM,
		Success:   ok,
		Timestamp: time.Now().UTC(),
	}
}

func TestRecorder_EvictsOldestPastCapacity(t *testing.T) {
	t.Parallel()

	r := NewRecorder(3, 20)
	r.Record(model.ExtractionAttempt{Method: model.MethodLLM})
	r.Record(model.ExtractionAttempt{Method: model.MethodNER})
	r.Record(model.ExtractionAttempt{Method: model.MethodHeuristic})
	r.Record(model.ExtractionAttempt{Method: model.MethodLLM})

	assert.Equal(t, 3, r.Len())

	recent := r.Recent(3)
	// Oldest entry (the first llm attempt) was evicted.
	assert.Equal(t, model.MethodNER, recent[0].Method)
	assert.Equal(t, model.MethodHeuristic, recent[1].Method)
	assert.Equal(t, model.MethodLLM, recent[2].Method)
}

func TestRecorder_RecentClampsToLength(t *testing.T) {
	t.Parallel()

	r := NewRecorder(10, 20)
	r.Record(attempt(true))

	assert.Len(t, r.Recent(5), 1)
	assert.Empty(t, NewRecorder(10, 20).Recent(5))
}

func TestSuccessRate_EmptyReadsHealthy(t *testing.T) {
	t.Parallel()

	r := NewRecorder(0, 0)
	assert.Equal(t, 1.0, r.SuccessRate())
}

func TestSuccessRate_WindowedOverRecentAttempts(t *testing.T) {
	t.Parallel()

	r := NewRecorder(100, 4)

	// Old failures outside the window must not count.
	for i := 0; i < 10; i++ {
		r.Record(attempt(false))
	}
	r.Record(attempt(true))
	r.Record(attempt(true))
	r.Record(attempt(true))
	r.Record(attempt(false))

	assert.InDelta(t, 0.75, r.SuccessRate(), 1e-9)
}

func TestSuccessRate_FewerAttemptsThanWindow(t *testing.T) {
	t.Parallel()

	r := NewRecorder(100, 20)
	r.Record(attempt(true))
	r.Record(attempt(false))

	assert.InDelta(t, 0.5, r.SuccessRate(), 1e-9)
}

func TestAvgProcessingMS(t *testing.T) {
	t.Parallel()

	r := NewRecorder(100, 20)
	assert.Zero(t, r.AvgProcessingMS())

	r.RecordDuration(100 * time.Millisecond)
	r.RecordDuration(300 * time.Millisecond)

	assert.InDelta(t, 200, r.AvgProcessingMS(), 1e-9)
}
