package extract

import (
	"math"

	"github.com/tonetrace/tonetrace/internal/analytics"
)

// textCounts are the raw counts behind the readability formulas.
type textCounts struct {
	words         int
	sentences     int
	syllables     int
	polysyllables int // words with three or more syllables
	difficult     int // unfamiliar words with two or more syllables
}

func countText(doc *Document) textCounts {
	c := textCounts{words: len(doc.Words), sentences: doc.SentenceCount()}
	for _, w := range doc.Words {
		n := Syllables(w)
		c.syllables += n
		if n >= 3 {
			c.polysyllables++
		}
		if n >= 2 && !familiar(w) {
			c.difficult++
		}
	}
	return c
}

func (c textCounts) wordsPerSentence() float64 {
	return float64(c.words) / float64(c.sentences)
}

// FleschKincaidGrade = 0.39*(words/sentences) + 11.8*(syllables/words) - 15.59
func (c textCounts) fleschKincaid() float64 {
	return 0.39*c.wordsPerSentence() + 11.8*float64(c.syllables)/float64(c.words) - 15.59
}

// SMOG = 1.043*sqrt(polysyllables*30/sentences) + 3.1291
func (c textCounts) smog() float64 {
	return 1.043*math.Sqrt(float64(c.polysyllables)*30/float64(c.sentences)) + 3.1291
}

// Gunning fog = 0.4*(words/sentences + 100*complex/words)
func (c textCounts) gunningFog() float64 {
	return 0.4 * (c.wordsPerSentence() + 100*float64(c.polysyllables)/float64(c.words))
}

// Dale-Chall = 0.1579*difficult% + 0.0496*(words/sentences), plus 3.6365
// when more than 5% of words are difficult.
func (c textCounts) daleChall() float64 {
	pct := 100 * float64(c.difficult) / float64(c.words)
	score := 0.1579*pct + 0.0496*c.wordsPerSentence()
	if pct > 5 {
		score += 3.6365
	}
	return score
}

func init() {
	Register(NewFunc("readability", extractReadability))
	Register(NewFunc("formality", extractFormality))
}

func extractReadability(doc *Document) *analytics.MetricsRecord {
	c := countText(doc)
	return &analytics.MetricsRecord{
		Readability: &analytics.ReadabilityMetrics{
			FleschKincaidGrade: analytics.Float(round(c.fleschKincaid(), 2)),
			SmogIndex:          analytics.Float(round(c.smog(), 2)),
			GunningFog:         analytics.Float(round(c.gunningFog(), 2)),
			DaleChallScore:     analytics.Float(round(c.daleChall(), 2)),
		},
	}
}

// extractFormality reports the Flesch-Kincaid grade as the formality grade.
// Very simple text yields a negative grade, reported as 0.
func extractFormality(doc *Document) *analytics.MetricsRecord {
	grade := math.Max(0, countText(doc).fleschKincaid())
	return &analytics.MetricsRecord{
		Formality: &analytics.FormalityMetrics{Grade: analytics.Float(round(grade, 2))},
	}
}
