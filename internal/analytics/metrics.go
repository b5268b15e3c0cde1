package analytics

import "math"

// Metric names one scalar metric tracked by a running mean.
type Metric string

const (
	MetricSentiment        Metric = "sentiment"
	MetricLexicalDiversity Metric = "lexical_diversity"
	MetricFormality        Metric = "formality"
	MetricSentenceLength   Metric = "sentence_length"
	MetricLexicalDensity   Metric = "lexical_density"
	MetricPassiveVoice     Metric = "passive_voice_ratio"
	MetricGrammarErrors    Metric = "grammar_errors"
	MetricLexicalRichness  Metric = "lexical_richness"
	MetricFleschKincaid    Metric = "flesch_kincaid_grade"
	MetricSmog             Metric = "smog_index"
	MetricGunningFog       Metric = "gunning_fog"
	MetricDaleChall        Metric = "dale_chall_score"
)

// AllMetrics lists every scalar metric in a stable order.
var AllMetrics = []Metric{
	MetricSentiment,
	MetricLexicalDiversity,
	MetricFormality,
	MetricSentenceLength,
	MetricLexicalDensity,
	MetricPassiveVoice,
	MetricGrammarErrors,
	MetricLexicalRichness,
	MetricFleschKincaid,
	MetricSmog,
	MetricGunningFog,
	MetricDaleChall,
}

// ReadabilityScores lists the readability sub-scores in persisted order.
var ReadabilityScores = []Metric{
	MetricFleschKincaid,
	MetricSmog,
	MetricGunningFog,
	MetricDaleChall,
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	for _, k := range AllMetrics {
		if k == m {
			return true
		}
	}
	return false
}

// Bounds returns the accepted value range of m. Readability scores are
// unbounded since grade formulas can go negative on very simple text.
func (m Metric) Bounds() (lo, hi float64, bounded bool) {
	switch m {
	case MetricSentiment:
		return -1, 1, true
	case MetricLexicalDiversity, MetricLexicalDensity, MetricPassiveVoice, MetricLexicalRichness:
		return 0, 1, true
	case MetricFormality, MetricSentenceLength, MetricGrammarErrors:
		return 0, math.Inf(1), true
	}
	return 0, 0, false
}
