package profile

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tonetrace/tonetrace/internal/analytics"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// historyKeys mark the legacy shape that retained every observed value.
var historyKeys = []string{
	"sentiment_history",
	"lexical_diversity_scores",
	"formality_grades",
	"passive_voice_ratios",
	"hedging_count",
}

// Upgrade converts a decoded document of any known version into the current
// version. Current documents are returned unchanged.
//
// Version 0 documents come in two shapes: the flat mapping (same keys as
// version 1 without schema_version) and the history shape that kept the full
// list of values per metric. History lists are reduced to their means.
func Upgrade(raw map[string]any) (map[string]any, error) {
	version, err := documentVersion(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case version > SchemaVersion:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	case version == SchemaVersion:
		return raw, nil
	}

	if isHistoryShape(raw) {
		doc, err := upgradeHistory(raw)
		if err != nil {
			return nil, err
		}
		return toRaw(doc)
	}

	var doc Document
	if err := remarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc.SchemaVersion = SchemaVersion
	doc.MetricCounts = nil
	return toRaw(&doc)
}

// DocumentVersion reports the schema version of a decoded document.
func DocumentVersion(raw map[string]any) (int, error) {
	return documentVersion(raw)
}

func documentVersion(raw map[string]any) (int, error) {
	v, ok := raw["schema_version"]
	if !ok || v == nil {
		return 0, nil
	}
	f, ok := utils.ToFloat64(v)
	if !ok || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: schema_version must be a non-negative integer", ErrInvalidDocument)
	}
	return int(f), nil
}

func isHistoryShape(raw map[string]any) bool {
	for _, k := range historyKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	if c, ok := raw["complexity"].(map[string]any); ok {
		_, sl := c["sentence_length"].([]any)
		_, ld := c["lexical_density"].([]any)
		return sl || ld
	}
	return false
}

type legacyHistory struct {
	ToneDistribution       map[string]int `json:"tone_distribution"`
	EmotionDistribution    map[string]int `json:"emotion_distribution"`
	SentimentHistory       []float64      `json:"sentiment_history"`
	LexicalDiversityScores []float64      `json:"lexical_diversity_scores"`
	FormalityGrades        []float64      `json:"formality_grades"`
	Complexity             struct {
		SentenceLength []float64 `json:"sentence_length"`
		LexicalDensity []float64 `json:"lexical_density"`
	} `json:"complexity"`
	PassiveVoiceRatios []float64 `json:"passive_voice_ratios"`
	HedgingCount       int       `json:"hedging_count"`
	TotalTexts         int       `json:"total_texts"`
	LastUpdated        string    `json:"last_updated"`
}

func upgradeHistory(raw map[string]any) (*Document, error) {
	var h legacyHistory
	if err := remarshal(raw, &h); err != nil {
		return nil, err
	}

	doc := &Document{
		SchemaVersion:       SchemaVersion,
		ToneDistribution:    h.ToneDistribution,
		EmotionDistribution: h.EmotionDistribution,
		TotalHedgingCount:   h.HedgingCount,
		TotalTexts:          h.TotalTexts,
		LastUpdated:         h.LastUpdated,
		AverageReadability:  make(map[string]float64, len(analytics.ReadabilityScores)),
		MetricCounts:        make(map[string]int),
	}
	if doc.ToneDistribution == nil {
		doc.ToneDistribution = make(map[string]int)
	}
	if doc.EmotionDistribution == nil {
		doc.EmotionDistribution = make(map[string]int)
	}
	for _, m := range analytics.ReadabilityScores {
		doc.AverageReadability[string(m)] = 0
	}

	lists := []struct {
		metric analytics.Metric
		values []float64
		dst    *float64
	}{
		{analytics.MetricSentiment, h.SentimentHistory, &doc.AverageSentiment},
		{analytics.MetricLexicalDiversity, h.LexicalDiversityScores, &doc.AverageLexicalDiversity},
		{analytics.MetricFormality, h.FormalityGrades, &doc.AverageFormality},
		{analytics.MetricSentenceLength, h.Complexity.SentenceLength, &doc.AverageSentenceLength},
		{analytics.MetricLexicalDensity, h.Complexity.LexicalDensity, &doc.AverageLexicalDensity},
		{analytics.MetricPassiveVoice, h.PassiveVoiceRatios, &doc.AveragePassiveVoiceRatio},
	}
	for _, l := range lists {
		*l.dst = mean(l.values)
		if len(l.values) > 0 {
			doc.MetricCounts[string(l.metric)] = len(l.values)
		}
	}

	// Older writers incremented total_texts inconsistently; never report
	// fewer texts than the longest history list.
	for _, n := range doc.MetricCounts {
		if n > doc.TotalTexts {
			doc.TotalTexts = n
		}
	}
	return doc, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// toRaw re-encodes doc as a generic map, dropping metric_counts when unset so
// FromDocument seeds it.
func toRaw(doc *Document) (map[string]any, error) {
	var raw map[string]any
	if err := remarshal(doc, &raw); err != nil {
		return nil, err
	}
	if doc.MetricCounts == nil {
		delete(raw, "metric_counts")
	}
	if doc.AverageReadability == nil {
		delete(raw, "average_readability")
	}
	if doc.ToneDistribution == nil {
		raw["tone_distribution"] = map[string]any{}
	}
	if doc.EmotionDistribution == nil {
		raw["emotion_distribution"] = map[string]any{}
	}
	return raw, nil
}
