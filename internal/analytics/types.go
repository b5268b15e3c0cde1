// Package analytics provides the per-submission metrics record shared by the
// extractors, the profile updater and the anomaly detector.
package analytics

import (
	"errors"
	"fmt"

	"github.com/tonetrace/tonetrace/internal/utils"
)

// RecordSchemaVersion is the current wire version of MetricsRecord.
const RecordSchemaVersion = 1

// ErrInvalidRecord is returned by Validate for out-of-range metric values.
var ErrInvalidRecord = errors.New("invalid metrics record")

// SentimentMetrics holds sentiment analysis output.
type SentimentMetrics struct {
	Polarity *float64 `json:"polarity,omitempty"`
}

// FormalityMetrics holds the formality estimate as a school grade level.
type FormalityMetrics struct {
	Grade *float64 `json:"grade,omitempty"`
}

// ComplexityMetrics holds sentence-level complexity measures.
type ComplexityMetrics struct {
	SentenceLength *float64 `json:"sentence_length,omitempty"`
	LexicalDensity *float64 `json:"lexical_density,omitempty"`
}

// PassiveVoiceMetrics holds the share of passive sentences.
type PassiveVoiceMetrics struct {
	Ratio *float64 `json:"ratio,omitempty"`
}

// GrammarMetrics holds grammar check output.
type GrammarMetrics struct {
	NumErrors *int `json:"num_errors,omitempty"`
}

// ReadabilityMetrics holds the four readability sub-scores.
type ReadabilityMetrics struct {
	FleschKincaidGrade *float64 `json:"flesch_kincaid_grade,omitempty"`
	SmogIndex          *float64 `json:"smog_index,omitempty"`
	GunningFog         *float64 `json:"gunning_fog,omitempty"`
	DaleChallScore     *float64 `json:"dale_chall_score,omitempty"`
}

// MetricsRecord is the output of one analysis pass over one text.
// Every group and every leaf is optional; a nil pointer means the extractor
// did not produce the value, which is distinct from a zero value.
type MetricsRecord struct {
	SchemaVersion    int                  `json:"schema_version,omitempty"`
	Tone             *string              `json:"tone,omitempty"`
	Emotion          *string              `json:"emotion,omitempty"`
	Sentiment        *SentimentMetrics    `json:"sentiment,omitempty"`
	Formality        *FormalityMetrics    `json:"formality,omitempty"`
	Complexity       *ComplexityMetrics   `json:"complexity,omitempty"`
	PassiveVoice     *PassiveVoiceMetrics `json:"passive_voice,omitempty"`
	LexicalDiversity *float64             `json:"lexical_diversity,omitempty"`
	LexicalRichness  *float64             `json:"lexical_richness,omitempty"`
	HedgingCount     *int                 `json:"hedging_count,omitempty"`
	Grammar          *GrammarMetrics      `json:"grammar,omitempty"`
	Readability      *ReadabilityMetrics  `json:"readability,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ToneLabel returns the tone label if present.
func (r *MetricsRecord) ToneLabel() (string, bool) {
	if r.Tone == nil || *r.Tone == "" {
		return "", false
	}
	return *r.Tone, true
}

// EmotionLabel returns the emotion label if present.
func (r *MetricsRecord) EmotionLabel() (string, bool) {
	if r.Emotion == nil || *r.Emotion == "" {
		return "", false
	}
	return *r.Emotion, true
}

// Hedges returns the hedging count, zero when absent.
func (r *MetricsRecord) Hedges() int {
	if r.HedgingCount == nil {
		return 0
	}
	return *r.HedgingCount
}

// Value returns the scalar value of metric m and whether it was supplied.
func (r *MetricsRecord) Value(m Metric) (float64, bool) {
	switch m {
	case MetricSentiment:
		if r.Sentiment != nil {
			return deref(r.Sentiment.Polarity)
		}
	case MetricLexicalDiversity:
		return deref(r.LexicalDiversity)
	case MetricFormality:
		if r.Formality != nil {
			return deref(r.Formality.Grade)
		}
	case MetricSentenceLength:
		if r.Complexity != nil {
			return deref(r.Complexity.SentenceLength)
		}
	case MetricLexicalDensity:
		if r.Complexity != nil {
			return deref(r.Complexity.LexicalDensity)
		}
	case MetricPassiveVoice:
		if r.PassiveVoice != nil {
			return deref(r.PassiveVoice.Ratio)
		}
	case MetricGrammarErrors:
		if r.Grammar != nil && r.Grammar.NumErrors != nil {
			return float64(*r.Grammar.NumErrors), true
		}
	case MetricLexicalRichness:
		return deref(r.LexicalRichness)
	case MetricFleschKincaid:
		if r.Readability != nil {
			return deref(r.Readability.FleschKincaidGrade)
		}
	case MetricSmog:
		if r.Readability != nil {
			return deref(r.Readability.SmogIndex)
		}
	case MetricGunningFog:
		if r.Readability != nil {
			return deref(r.Readability.GunningFog)
		}
	case MetricDaleChall:
		if r.Readability != nil {
			return deref(r.Readability.DaleChallScore)
		}
	}
	return 0, false
}

// Merge copies every field present in other onto r. Fields present in both
// take the value from other.
func (r *MetricsRecord) Merge(other *MetricsRecord) {
	if other == nil {
		return
	}
	if other.Tone != nil {
		r.Tone = other.Tone
	}
	if other.Emotion != nil {
		r.Emotion = other.Emotion
	}
	if other.LexicalDiversity != nil {
		r.LexicalDiversity = other.LexicalDiversity
	}
	if other.LexicalRichness != nil {
		r.LexicalRichness = other.LexicalRichness
	}
	if other.HedgingCount != nil {
		r.HedgingCount = other.HedgingCount
	}
	if s := other.Sentiment; s != nil {
		if r.Sentiment == nil {
			r.Sentiment = &SentimentMetrics{}
		}
		if s.Polarity != nil {
			r.Sentiment.Polarity = s.Polarity
		}
	}
	if f := other.Formality; f != nil {
		if r.Formality == nil {
			r.Formality = &FormalityMetrics{}
		}
		if f.Grade != nil {
			r.Formality.Grade = f.Grade
		}
	}
	if c := other.Complexity; c != nil {
		if r.Complexity == nil {
			r.Complexity = &ComplexityMetrics{}
		}
		if c.SentenceLength != nil {
			r.Complexity.SentenceLength = c.SentenceLength
		}
		if c.LexicalDensity != nil {
			r.Complexity.LexicalDensity = c.LexicalDensity
		}
	}
	if p := other.PassiveVoice; p != nil {
		if r.PassiveVoice == nil {
			r.PassiveVoice = &PassiveVoiceMetrics{}
		}
		if p.Ratio != nil {
			r.PassiveVoice.Ratio = p.Ratio
		}
	}
	if g := other.Grammar; g != nil {
		if r.Grammar == nil {
			r.Grammar = &GrammarMetrics{}
		}
		if g.NumErrors != nil {
			r.Grammar.NumErrors = g.NumErrors
		}
	}
	if rd := other.Readability; rd != nil {
		if r.Readability == nil {
			r.Readability = &ReadabilityMetrics{}
		}
		if rd.FleschKincaidGrade != nil {
			r.Readability.FleschKincaidGrade = rd.FleschKincaidGrade
		}
		if rd.SmogIndex != nil {
			r.Readability.SmogIndex = rd.SmogIndex
		}
		if rd.GunningFog != nil {
			r.Readability.GunningFog = rd.GunningFog
		}
		if rd.DaleChallScore != nil {
			r.Readability.DaleChallScore = rd.DaleChallScore
		}
	}
}

// Validate checks value ranges. It does not require any field to be present.
func (r *MetricsRecord) Validate() error {
	if r.SchemaVersion > RecordSchemaVersion {
		return fmt.Errorf("%w: schema_version %d not supported", ErrInvalidRecord, r.SchemaVersion)
	}
	for _, m := range AllMetrics {
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		if !utils.IsFinite(v) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidRecord, m)
		}
		if lo, hi, bounded := m.Bounds(); bounded && (v < lo || v > hi) {
			return fmt.Errorf("%w: %s=%g out of range [%g, %g]", ErrInvalidRecord, m, v, lo, hi)
		}
	}
	if r.HedgingCount != nil && *r.HedgingCount < 0 {
		return fmt.Errorf("%w: hedging_count must be >= 0", ErrInvalidRecord)
	}
	return nil
}
