// Package profile maintains per-student style profiles: running aggregates of
// writing metrics folded from one MetricsRecord per submission.
package profile

import (
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
)

// Readability holds the running means of the readability sub-scores.
type Readability struct {
	FleschKincaidGrade float64
	SmogIndex          float64
	GunningFog         float64
	DaleChallScore     float64
}

// StyleProfile is the running summary of one student's submissions.
// No per-submission values are retained; memory is constant in history length.
type StyleProfile struct {
	ToneDistribution    map[string]int
	EmotionDistribution map[string]int

	AverageSentiment         float64
	AverageLexicalDiversity  float64
	AverageFormality         float64
	AverageSentenceLength    float64
	AverageLexicalDensity    float64
	AveragePassiveVoiceRatio float64
	AverageGrammarErrors     float64
	AverageLexicalRichness   float64
	AverageReadability       Readability

	TotalHedgingCount int
	TotalTexts        int
	LastUpdated       time.Time

	// MetricCounts counts the submissions that supplied each metric.
	MetricCounts map[analytics.Metric]int
}

// New returns an empty profile.
func New() *StyleProfile {
	return &StyleProfile{
		ToneDistribution:    make(map[string]int),
		EmotionDistribution: make(map[string]int),
		MetricCounts:        make(map[analytics.Metric]int),
	}
}

// Mean returns the running mean stored for m.
func (p *StyleProfile) Mean(m analytics.Metric) float64 {
	if f := p.meanRef(m); f != nil {
		return *f
	}
	return 0
}

func (p *StyleProfile) meanRef(m analytics.Metric) *float64 {
	switch m {
	case analytics.MetricSentiment:
		return &p.AverageSentiment
	case analytics.MetricLexicalDiversity:
		return &p.AverageLexicalDiversity
	case analytics.MetricFormality:
		return &p.AverageFormality
	case analytics.MetricSentenceLength:
		return &p.AverageSentenceLength
	case analytics.MetricLexicalDensity:
		return &p.AverageLexicalDensity
	case analytics.MetricPassiveVoice:
		return &p.AveragePassiveVoiceRatio
	case analytics.MetricGrammarErrors:
		return &p.AverageGrammarErrors
	case analytics.MetricLexicalRichness:
		return &p.AverageLexicalRichness
	case analytics.MetricFleschKincaid:
		return &p.AverageReadability.FleschKincaidGrade
	case analytics.MetricSmog:
		return &p.AverageReadability.SmogIndex
	case analytics.MetricGunningFog:
		return &p.AverageReadability.GunningFog
	case analytics.MetricDaleChall:
		return &p.AverageReadability.DaleChallScore
	}
	return nil
}

// Clone returns a deep copy of p.
func (p *StyleProfile) Clone() *StyleProfile {
	c := *p
	c.ToneDistribution = copyCounts(p.ToneDistribution)
	c.EmotionDistribution = copyCounts(p.EmotionDistribution)
	c.MetricCounts = make(map[analytics.Metric]int, len(p.MetricCounts))
	for k, v := range p.MetricCounts {
		c.MetricCounts[k] = v
	}
	return &c
}

// Equal reports whether p and o hold the same state. Timestamps are compared
// as instants and nil maps equal empty maps.
func (p *StyleProfile) Equal(o *StyleProfile) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.TotalTexts != o.TotalTexts ||
		p.TotalHedgingCount != o.TotalHedgingCount ||
		!p.LastUpdated.Equal(o.LastUpdated) ||
		p.AverageReadability != o.AverageReadability {
		return false
	}
	for _, m := range analytics.AllMetrics {
		if p.Mean(m) != o.Mean(m) || p.MetricCounts[m] != o.MetricCounts[m] {
			return false
		}
	}
	return countsEqual(p.ToneDistribution, o.ToneDistribution) &&
		countsEqual(p.EmotionDistribution, o.EmotionDistribution)
}

// ToneTotal returns the number of tone observations.
func (p *StyleProfile) ToneTotal() int {
	total := 0
	for _, n := range p.ToneDistribution {
		total += n
	}
	return total
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func countsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
