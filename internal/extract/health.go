package extract

import (
	"github.com/podrewind/guest-engine/internal/resilience"
)

// Health is the read-only snapshot polled by dashboards and the health
// endpoint. Breaker state is exposed verbatim.
type Health struct {
	CircuitBreakers   map[string]resilience.Snapshot `json:"circuit_breakers"`
	RecentSuccessRate float64                        `json:"recent_success_rate"`
	AvgProcessingMS   float64                        `json:"avg_processing_ms"`
}

// Health reports current breaker states and rolling attempt metrics.
func (e *Engine) Health() Health {
	return Health{
		CircuitBreakers:   e.breakers.Snapshots(),
		RecentSuccessRate: e.history.SuccessRate(),
		AvgProcessingMS:   e.history.AvgProcessingMS(),
	}
}
