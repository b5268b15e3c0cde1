// Package anomaly compares a fresh style profile against a student's baseline
// and explains which dimensions deviate.
package anomaly

import (
	"fmt"
)

// Details keys, one per check.
const (
	KeySentenceLength   = "sentence_length_diff"
	KeyLexicalDensity   = "lexical_density_diff"
	KeyFormality        = "formality_diff"
	KeyToneSimilarity   = "tone_similarity"
	KeyLexicalDiversity = "lexical_diversity_diff"
	KeySentiment        = "sentiment_diff"
)

// Report is the outcome of one comparison.
type Report struct {
	IsAnomaly bool               `json:"is_anomaly"`
	Reasons   []string           `json:"reasons"`
	Details   map[string]float64 `json:"details"`
}

// Config holds per-dimension thresholds. Deviation thresholds are relative
// differences; ToneSimilarity is the minimum accepted cosine similarity.
type Config struct {
	SentenceLength   float64 `mapstructure:"sentence_length"`
	LexicalDensity   float64 `mapstructure:"lexical_density"`
	Formality        float64 `mapstructure:"formality"`
	LexicalDiversity float64 `mapstructure:"lexical_diversity"`
	Sentiment        float64 `mapstructure:"sentiment"`
	ToneSimilarity   float64 `mapstructure:"tone_similarity"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SentenceLength:   0.15,
		LexicalDensity:   0.15,
		Formality:        0.10,
		LexicalDiversity: 0.15,
		Sentiment:        0.20,
		ToneSimilarity:   0.85,
	}
}

// Validate checks threshold ranges.
func (c Config) Validate() error {
	deviations := map[string]float64{
		"sentence_length":   c.SentenceLength,
		"lexical_density":   c.LexicalDensity,
		"formality":         c.Formality,
		"lexical_diversity": c.LexicalDiversity,
		"sentiment":         c.Sentiment,
	}
	for name, v := range deviations {
		if v < 0 {
			return fmt.Errorf("%s threshold must be >= 0, got %g", name, v)
		}
	}
	if c.ToneSimilarity < 0 || c.ToneSimilarity > 1 {
		return fmt.Errorf("tone_similarity threshold must be within [0, 1], got %g", c.ToneSimilarity)
	}
	return nil
}
