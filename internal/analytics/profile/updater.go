package profile

import (
	"fmt"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
)

// MeanMode selects the divisor of the running mean.
type MeanMode string

const (
	// MeanOverTexts divides by the number of submissions folded, including
	// those that did not supply the metric.
	MeanOverTexts MeanMode = "texts"
	// MeanOverObservations divides by the number of submissions that
	// supplied the metric.
	MeanOverObservations MeanMode = "observations"
)

// ParseMeanMode parses a configured mean mode. Empty selects MeanOverTexts.
func ParseMeanMode(s string) (MeanMode, error) {
	switch MeanMode(s) {
	case "", MeanOverTexts:
		return MeanOverTexts, nil
	case MeanOverObservations:
		return MeanOverObservations, nil
	}
	return "", fmt.Errorf("unknown mean mode %q", s)
}

// Updater folds metrics records into profiles.
type Updater struct {
	Mode MeanMode
	Now  func() time.Time
}

// NewUpdater creates an updater using the wall clock.
func NewUpdater(mode MeanMode) *Updater {
	return &Updater{Mode: mode, Now: time.Now}
}

var defaultUpdater = NewUpdater(MeanOverTexts)

// Update folds r into p with the default updater.
func Update(p *StyleProfile, r *analytics.MetricsRecord) *StyleProfile {
	return defaultUpdater.Update(p, r)
}

// FromRecord returns a profile holding the single observation r.
func FromRecord(r *analytics.MetricsRecord) *StyleProfile {
	return defaultUpdater.Update(New(), r)
}

// Update folds r into p and returns p. Missing fields leave the matching
// aggregate untouched; it never fails. p must come from New or a store.
func (u *Updater) Update(p *StyleProfile, r *analytics.MetricsRecord) *StyleProfile {
	if r == nil {
		r = &analytics.MetricsRecord{}
	}
	if p.ToneDistribution == nil {
		p.ToneDistribution = make(map[string]int)
	}
	if p.EmotionDistribution == nil {
		p.EmotionDistribution = make(map[string]int)
	}
	if p.MetricCounts == nil {
		p.MetricCounts = make(map[analytics.Metric]int)
	}

	p.TotalTexts++
	p.LastUpdated = u.now().UTC()

	if tone, ok := r.ToneLabel(); ok {
		p.ToneDistribution[tone]++
	}
	if emotion, ok := r.EmotionLabel(); ok {
		p.EmotionDistribution[emotion]++
	}

	for _, m := range analytics.AllMetrics {
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		p.MetricCounts[m]++

		n := p.TotalTexts
		if u.Mode == MeanOverObservations {
			n = p.MetricCounts[m]
		}
		mean := p.meanRef(m)
		*mean = (*mean*float64(n-1) + v) / float64(n)
	}

	p.TotalHedgingCount += r.Hedges()
	return p
}

func (u *Updater) now() time.Time {
	if u.Now == nil {
		return time.Now()
	}
	return u.Now()
}
