package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
)

// SchemaVersion is the version written into every persisted document.
const SchemaVersion = 1

var (
	// ErrInvalidDocument is returned when a persisted document cannot be decoded.
	ErrInvalidDocument = errors.New("invalid profile document")
	// ErrUnsupportedVersion is returned for documents newer than SchemaVersion.
	ErrUnsupportedVersion = errors.New("unsupported profile schema version")
)

// Document is the persisted representation of a StyleProfile.
type Document struct {
	SchemaVersion            int                `json:"schema_version"`
	ToneDistribution         map[string]int     `json:"tone_distribution"`
	EmotionDistribution      map[string]int     `json:"emotion_distribution"`
	AverageSentiment         float64            `json:"average_sentiment"`
	AverageLexicalDiversity  float64            `json:"average_lexical_diversity"`
	AverageFormality         float64            `json:"average_formality"`
	AverageSentenceLength    float64            `json:"average_sentence_length"`
	AverageLexicalDensity    float64            `json:"average_lexical_density"`
	AveragePassiveVoiceRatio float64            `json:"average_passive_voice_ratio"`
	TotalHedgingCount        int                `json:"total_hedging_count"`
	AverageGrammarErrors     float64            `json:"average_grammar_errors"`
	AverageLexicalRichness   float64            `json:"average_lexical_richness"`
	AverageReadability       map[string]float64 `json:"average_readability"`
	TotalTexts               int                `json:"total_texts"`
	LastUpdated              string             `json:"last_updated"`
	MetricCounts             map[string]int     `json:"metric_counts"`
}

// ToDocument converts p to its persisted form.
func (p *StyleProfile) ToDocument() *Document {
	doc := &Document{
		SchemaVersion:            SchemaVersion,
		ToneDistribution:         copyCounts(p.ToneDistribution),
		EmotionDistribution:      copyCounts(p.EmotionDistribution),
		AverageSentiment:         p.AverageSentiment,
		AverageLexicalDiversity:  p.AverageLexicalDiversity,
		AverageFormality:         p.AverageFormality,
		AverageSentenceLength:    p.AverageSentenceLength,
		AverageLexicalDensity:    p.AverageLexicalDensity,
		AveragePassiveVoiceRatio: p.AveragePassiveVoiceRatio,
		TotalHedgingCount:        p.TotalHedgingCount,
		AverageGrammarErrors:     p.AverageGrammarErrors,
		AverageLexicalRichness:   p.AverageLexicalRichness,
		AverageReadability:       make(map[string]float64, len(analytics.ReadabilityScores)),
		TotalTexts:               p.TotalTexts,
		MetricCounts:             make(map[string]int, len(p.MetricCounts)),
	}
	for _, m := range analytics.ReadabilityScores {
		doc.AverageReadability[string(m)] = p.Mean(m)
	}
	for m, n := range p.MetricCounts {
		doc.MetricCounts[string(m)] = n
	}
	if !p.LastUpdated.IsZero() {
		doc.LastUpdated = p.LastUpdated.UTC().Format(time.RFC3339Nano)
	}
	return doc
}

// FromDocument converts a persisted document back into a profile. Documents
// without metric_counts get every counter seeded from total_texts, which is
// what their means were divided by.
func FromDocument(doc *Document) (*StyleProfile, error) {
	if doc.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.SchemaVersion)
	}
	p := New()
	for k, v := range doc.ToneDistribution {
		p.ToneDistribution[k] = v
	}
	for k, v := range doc.EmotionDistribution {
		p.EmotionDistribution[k] = v
	}
	p.AverageSentiment = doc.AverageSentiment
	p.AverageLexicalDiversity = doc.AverageLexicalDiversity
	p.AverageFormality = doc.AverageFormality
	p.AverageSentenceLength = doc.AverageSentenceLength
	p.AverageLexicalDensity = doc.AverageLexicalDensity
	p.AveragePassiveVoiceRatio = doc.AveragePassiveVoiceRatio
	p.TotalHedgingCount = doc.TotalHedgingCount
	p.AverageGrammarErrors = doc.AverageGrammarErrors
	p.AverageLexicalRichness = doc.AverageLexicalRichness
	p.TotalTexts = doc.TotalTexts
	for _, m := range analytics.ReadabilityScores {
		*p.meanRef(m) = doc.AverageReadability[string(m)]
	}

	if doc.MetricCounts == nil {
		if p.TotalTexts > 0 {
			for _, m := range analytics.AllMetrics {
				p.MetricCounts[m] = p.TotalTexts
			}
		}
	} else {
		for k, n := range doc.MetricCounts {
			m := analytics.Metric(k)
			if !m.Valid() {
				return nil, fmt.Errorf("%w: unknown metric %q in metric_counts", ErrInvalidDocument, k)
			}
			p.MetricCounts[m] = n
		}
	}

	if doc.LastUpdated != "" {
		ts, err := parseTimestamp(doc.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("%w: last_updated: %v", ErrInvalidDocument, err)
		}
		p.LastUpdated = ts
	}
	return p, nil
}

// Marshal encodes p as a persisted JSON document.
func Marshal(p *StyleProfile) ([]byte, error) {
	data, err := json.Marshal(p.ToDocument())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a persisted document of any known version.
func Unmarshal(data []byte) (*StyleProfile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	upgraded, err := Upgrade(raw)
	if err != nil {
		return nil, err
	}
	if err := validateDocument(upgraded); err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(upgraded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var doc Document
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return FromDocument(&doc)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO form older writers
// produced; zone-less values are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
