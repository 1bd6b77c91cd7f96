// ABOUTME: Smoothed latency tracking with outlier rejection
// ABOUTME: Filters successive estimates and reports a quality level
package latency

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Quality represents how trustworthy the tracked latency is
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

const (
	defaultSmoothing = 0.1
	// Residuals beyond this suggest a stream restart or clock jump
	outlierMs = 50.0
	// Consecutive rejections before the estimate is considered degraded
	degradedAfter = 3
	staleAfter    = 5 * time.Second
)

// Tracker smooths latency estimates with a fixed-gain filter
type Tracker struct {
	mu          sync.RWMutex
	logger      *zap.Logger
	latencyMs   float64
	rawMs       float64
	quality     Quality
	lastUpdate  time.Time
	sampleCount int
	rejected    int
	smoothing   float64
	now         func() time.Time
}

// NewTracker creates a tracker. A nil logger is replaced by a no-op logger.
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		logger:    logger.Named("latency"),
		smoothing: defaultSmoothing,
		quality:   QualityLost,
		now:       time.Now,
	}
}

// Process feeds a new sample. Invalid samples and outliers are dropped.
func (t *Tracker) Process(s Sample) {
	measured, err := Estimate(s)
	if err != nil {
		t.logger.Debug("discarding latency sample", zap.Error(err))
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rawMs = measured

	if t.sampleCount == 0 {
		t.latencyMs = measured
		t.sampleCount++
		t.quality = QualityGood
		t.lastUpdate = t.now()
		t.logger.Info("initial latency estimate", zap.Float64("latency_ms", measured))
		return
	}

	residual := measured - t.latencyMs
	if residual > outlierMs || residual < -outlierMs {
		t.rejected++
		if t.rejected >= degradedAfter {
			t.quality = QualityDegraded
		}
		t.logger.Debug("discarding latency outlier",
			zap.Float64("measured_ms", measured),
			zap.Float64("residual_ms", residual))
		return
	}

	t.latencyMs += t.smoothing * residual
	t.sampleCount++
	t.rejected = 0
	t.quality = QualityGood
	t.lastUpdate = t.now()
}

// Latency returns the smoothed latency in milliseconds
func (t *Tracker) Latency() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latencyMs
}

// Stats returns the smoothed and latest raw latency with the current quality
func (t *Tracker) Stats() (latencyMs, rawMs float64, quality Quality) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latencyMs, t.rawMs, t.quality
}

// CheckQuality marks the estimate lost when no sample was accepted recently
func (t *Tracker) CheckQuality() Quality {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sampleCount > 0 && t.now().Sub(t.lastUpdate) > staleAfter {
		t.quality = QualityLost
	}
	return t.quality
}

// Reset forgets all previous samples
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latencyMs = 0
	t.rawMs = 0
	t.sampleCount = 0
	t.rejected = 0
	t.quality = QualityLost
}
