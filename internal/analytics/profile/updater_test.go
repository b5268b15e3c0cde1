package profile

import (
	"math"
	"testing"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func recordWith(sentiment, diversity, sentenceLength float64) *analytics.MetricsRecord {
	return &analytics.MetricsRecord{
		Sentiment:        &analytics.SentimentMetrics{Polarity: analytics.Float(sentiment)},
		LexicalDiversity: analytics.Float(diversity),
		Complexity:       &analytics.ComplexityMetrics{SentenceLength: analytics.Float(sentenceLength)},
	}
}

func TestUpdate_RunningMeanEqualsArithmeticMean(t *testing.T) {
	sentiments := []float64{0.2, -0.4, 0.9, 0.1, 0.0, -1.0, 0.35}
	diversity := []float64{0.7, 0.65, 0.8, 0.5, 0.9, 0.6, 0.75}
	lengths := []float64{12, 18.5, 22, 9, 15, 30, 17}

	p := New()
	for i := range sentiments {
		Update(p, recordWith(sentiments[i], diversity[i], lengths[i]))
	}

	if p.TotalTexts != len(sentiments) {
		t.Fatalf("Expected total_texts %d, got %d", len(sentiments), p.TotalTexts)
	}

	checks := []struct {
		name   string
		got    float64
		values []float64
	}{
		{"sentiment", p.AverageSentiment, sentiments},
		{"lexical_diversity", p.AverageLexicalDiversity, diversity},
		{"sentence_length", p.AverageSentenceLength, lengths},
	}
	for _, c := range checks {
		if want := mean(c.values); !almostEqual(c.got, want) {
			t.Errorf("%s: expected mean %f, got %f", c.name, want, c.got)
		}
	}
}

func TestUpdate_AbsentMetricLeavesMeanUntouched(t *testing.T) {
	p := New()
	Update(p, &analytics.MetricsRecord{Formality: &analytics.FormalityMetrics{Grade: analytics.Float(10)}})
	Update(p, &analytics.MetricsRecord{Tone: analytics.String("formal")})

	if p.TotalTexts != 2 {
		t.Fatalf("Expected total_texts 2, got %d", p.TotalTexts)
	}
	if p.AverageFormality != 10 {
		t.Errorf("Expected formality mean to stay 10, got %f", p.AverageFormality)
	}
	if p.MetricCounts[analytics.MetricFormality] != 1 {
		t.Errorf("Expected formality count 1, got %d", p.MetricCounts[analytics.MetricFormality])
	}

	// A later observation divides by total_texts, not by the observation count.
	Update(p, &analytics.MetricsRecord{Formality: &analytics.FormalityMetrics{Grade: analytics.Float(4)}})
	if want := (10.0*2 + 4) / 3; !almostEqual(p.AverageFormality, want) {
		t.Errorf("Expected formality mean %f, got %f", want, p.AverageFormality)
	}
}

func TestUpdate_ObservationMode(t *testing.T) {
	u := NewUpdater(MeanOverObservations)
	p := New()
	u.Update(p, &analytics.MetricsRecord{Formality: &analytics.FormalityMetrics{Grade: analytics.Float(10)}})
	u.Update(p, &analytics.MetricsRecord{})
	u.Update(p, &analytics.MetricsRecord{Formality: &analytics.FormalityMetrics{Grade: analytics.Float(4)}})

	if p.TotalTexts != 3 {
		t.Fatalf("Expected total_texts 3, got %d", p.TotalTexts)
	}
	if !almostEqual(p.AverageFormality, 7) {
		t.Errorf("Expected formality mean 7, got %f", p.AverageFormality)
	}
}

func TestUpdate_DistributionsAndHedging(t *testing.T) {
	p := New()
	Update(p, &analytics.MetricsRecord{Tone: analytics.String("formal"), Emotion: analytics.String("joy"), HedgingCount: analytics.Int(2)})
	Update(p, &analytics.MetricsRecord{Tone: analytics.String("formal"), HedgingCount: analytics.Int(3)})
	Update(p, &analytics.MetricsRecord{Tone: analytics.String("informal"), Emotion: analytics.String("")})
	Update(p, nil)

	if p.ToneDistribution["formal"] != 2 || p.ToneDistribution["informal"] != 1 {
		t.Errorf("Unexpected tone distribution: %v", p.ToneDistribution)
	}
	if len(p.EmotionDistribution) != 1 || p.EmotionDistribution["joy"] != 1 {
		t.Errorf("Unexpected emotion distribution: %v", p.EmotionDistribution)
	}
	if p.TotalHedgingCount != 5 {
		t.Errorf("Expected hedging total 5, got %d", p.TotalHedgingCount)
	}
	if p.TotalTexts != 4 {
		t.Errorf("Expected total_texts 4, got %d", p.TotalTexts)
	}
}

func TestUpdate_SetsLastUpdated(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.FixedZone("CET", 3600))
	u := &Updater{Mode: MeanOverTexts, Now: fixedClock(ts)}

	p := u.Update(New(), &analytics.MetricsRecord{})
	if !p.LastUpdated.Equal(ts) {
		t.Errorf("Expected last_updated %v, got %v", ts, p.LastUpdated)
	}
	if p.LastUpdated.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %v", p.LastUpdated.Location())
	}
}

func TestUpdate_ReadabilityAndGrammar(t *testing.T) {
	p := New()
	for _, fk := range []float64{8, 10, 12} {
		Update(p, &analytics.MetricsRecord{
			Readability: &analytics.ReadabilityMetrics{FleschKincaidGrade: analytics.Float(fk), DaleChallScore: analytics.Float(fk / 2)},
			Grammar:     &analytics.GrammarMetrics{NumErrors: analytics.Int(int(fk) / 2)},
		})
	}
	if !almostEqual(p.AverageReadability.FleschKincaidGrade, 10) {
		t.Errorf("Expected FK mean 10, got %f", p.AverageReadability.FleschKincaidGrade)
	}
	if !almostEqual(p.AverageReadability.DaleChallScore, 5) {
		t.Errorf("Expected Dale-Chall mean 5, got %f", p.AverageReadability.DaleChallScore)
	}
	if p.AverageReadability.SmogIndex != 0 {
		t.Errorf("Expected SMOG untouched, got %f", p.AverageReadability.SmogIndex)
	}
	if !almostEqual(p.AverageGrammarErrors, 5) {
		t.Errorf("Expected grammar mean 5, got %f", p.AverageGrammarErrors)
	}
}

func TestFromRecord(t *testing.T) {
	p := FromRecord(recordWith(0.5, 0.6, 20))
	if p.TotalTexts != 1 {
		t.Fatalf("Expected single observation, got %d", p.TotalTexts)
	}
	if p.AverageSentiment != 0.5 || p.AverageLexicalDiversity != 0.6 || p.AverageSentenceLength != 20 {
		t.Errorf("Unexpected single-observation profile: %+v", p)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	p := New()
	Update(p, &analytics.MetricsRecord{Tone: analytics.String("formal")})
	c := p.Clone()
	Update(c, &analytics.MetricsRecord{Tone: analytics.String("formal")})

	if p.ToneDistribution["formal"] != 1 || p.TotalTexts != 1 {
		t.Errorf("Clone mutation leaked into original: %+v", p)
	}
	if c.ToneDistribution["formal"] != 2 {
		t.Errorf("Expected clone tone count 2, got %d", c.ToneDistribution["formal"])
	}
}

func TestParseMeanMode(t *testing.T) {
	tests := []struct {
		in      string
		want    MeanMode
		wantErr bool
	}{
		{"", MeanOverTexts, false},
		{"texts", MeanOverTexts, false},
		{"observations", MeanOverObservations, false},
		{"median", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMeanMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMeanMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMeanMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
