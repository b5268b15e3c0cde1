package anomaly

import (
	"fmt"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
)

// gate decides whether a check has enough data on both sides to run.
type gate func(current, baseline float64) bool

func bothPresent(a, b float64) bool  { return a != 0 && b != 0 }
func bothPositive(a, b float64) bool { return a > 0 && b > 0 }

// deviationCheck compares one running mean by relative difference.
type deviationCheck struct {
	key       string
	label     string
	value     func(p *profile.StyleProfile) float64
	gate      gate
	threshold func(c Config) float64
}

var (
	sentenceLengthCheck = deviationCheck{
		key:       KeySentenceLength,
		label:     "Sentence length",
		value:     func(p *profile.StyleProfile) float64 { return p.AverageSentenceLength },
		gate:      bothPresent,
		threshold: func(c Config) float64 { return c.SentenceLength },
	}
	lexicalDensityCheck = deviationCheck{
		key:       KeyLexicalDensity,
		label:     "Lexical density",
		value:     func(p *profile.StyleProfile) float64 { return p.AverageLexicalDensity },
		gate:      bothPresent,
		threshold: func(c Config) float64 { return c.LexicalDensity },
	}
	formalityCheck = deviationCheck{
		key:       KeyFormality,
		label:     "Formality",
		value:     func(p *profile.StyleProfile) float64 { return p.AverageFormality },
		gate:      bothPositive,
		threshold: func(c Config) float64 { return c.Formality },
	}
	lexicalDiversityCheck = deviationCheck{
		key:       KeyLexicalDiversity,
		label:     "Lexical diversity",
		value:     func(p *profile.StyleProfile) float64 { return p.AverageLexicalDiversity },
		gate:      bothPositive,
		threshold: func(c Config) float64 { return c.LexicalDiversity },
	}
	sentimentCheck = deviationCheck{
		key:       KeySentiment,
		label:     "Sentiment",
		value:     func(p *profile.StyleProfile) float64 { return p.AverageSentiment },
		gate:      bothPresent,
		threshold: func(c Config) float64 { return c.Sentiment },
	}
)

func (d deviationCheck) run(current, baseline *profile.StyleProfile, cfg Config, r *Report) {
	a, b := d.value(current), d.value(baseline)
	if !d.gate(a, b) {
		return
	}
	diff := PercentageDiff(a, b)
	r.Details[d.key] = diff
	if diff > d.threshold(cfg) {
		r.Reasons = append(r.Reasons, fmt.Sprintf("%s deviation: %.1f%%", d.label, diff*100))
	}
}

func toneCheck(current, baseline *profile.StyleProfile, cfg Config, r *Report) {
	if len(current.ToneDistribution) == 0 || len(baseline.ToneDistribution) == 0 {
		return
	}
	cur, base := Proportions(current.ToneDistribution), Proportions(baseline.ToneDistribution)
	if cur == nil || base == nil {
		return
	}
	similarity := ToneSimilarityScore(cur, base)
	r.Details[KeyToneSimilarity] = similarity
	if similarity < cfg.ToneSimilarity {
		r.Reasons = append(r.Reasons, fmt.Sprintf("Tone distribution shift: similarity %.2f", similarity))
	}
}

// Detector runs every check against a configured set of thresholds.
type Detector struct {
	config Config
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// Config returns the detector thresholds.
func (d *Detector) Config() Config {
	return d.config
}

// Detect compares current against baseline. Checks without enough data on
// either side are skipped and leave no entry in Details.
func (d *Detector) Detect(current, baseline *profile.StyleProfile) *Report {
	r := &Report{
		Reasons: []string{},
		Details: make(map[string]float64),
	}

	sentenceLengthCheck.run(current, baseline, d.config, r)
	lexicalDensityCheck.run(current, baseline, d.config, r)
	formalityCheck.run(current, baseline, d.config, r)
	toneCheck(current, baseline, d.config, r)
	lexicalDiversityCheck.run(current, baseline, d.config, r)
	sentimentCheck.run(current, baseline, d.config, r)

	r.IsAnomaly = len(r.Reasons) > 0
	return r
}

var defaultDetector = NewDetector(DefaultConfig())

// Detect compares current against baseline with the default thresholds.
func Detect(current, baseline *profile.StyleProfile) *Report {
	return defaultDetector.Detect(current, baseline)
}

// Flagged returns the Details keys of r whose value breached its threshold,
// in check order.
func (d *Detector) Flagged(r *Report) []string {
	if r == nil {
		return nil
	}
	var keys []string
	for _, c := range []deviationCheck{sentenceLengthCheck, lexicalDensityCheck, formalityCheck} {
		if v, ok := r.Details[c.key]; ok && v > c.threshold(d.config) {
			keys = append(keys, c.key)
		}
	}
	if v, ok := r.Details[KeyToneSimilarity]; ok && v < d.config.ToneSimilarity {
		keys = append(keys, KeyToneSimilarity)
	}
	for _, c := range []deviationCheck{lexicalDiversityCheck, sentimentCheck} {
		if v, ok := r.Details[c.key]; ok && v > c.threshold(d.config) {
			keys = append(keys, c.key)
		}
	}
	return keys
}
