package extract

import "github.com/tonetrace/tonetrace/internal/analytics"

// Tone labels
const (
	TonePositive = "positive"
	ToneNegative = "negative"
	ToneNeutral  = "neutral"
	ToneFormal   = "formal"
	ToneInformal = "informal"
)

type labelledSet struct {
	label string
	set   *phraseSet
}

// toneKeywords are checked in order; the first label wins ties.
var toneKeywords = []labelledSet{
	{TonePositive, newPhraseSet("good", "great", "excellent", "amazing", "wonderful", "fantastic", "love", "like", "enjoy", "happy", "excited", "proud", "confident", "optimistic")},
	{ToneNegative, newPhraseSet("bad", "terrible", "awful", "hate", "dislike", "angry", "frustrated", "disappointed", "worried", "sad", "confused", "difficult", "hard", "struggle")},
	{ToneNeutral, newPhraseSet("think", "believe", "consider", "analyze", "discuss", "examine", "explore", "investigate", "study", "research", "observe", "note", "find")},
	{ToneFormal, newPhraseSet("therefore", "however", "furthermore", "moreover", "consequently", "nevertheless", "accordingly", "subsequently", "hence", "thus", "indeed")},
	{ToneInformal, newPhraseSet("yeah", "ok", "cool", "awesome", "totally", "definitely", "sure", "maybe", "kinda", "sorta", "gonna", "wanna", "gotta")},
}

func init() {
	Register(NewFunc("tone", extractTone))
}

func extractTone(doc *Document) *analytics.MetricsRecord {
	return &analytics.MetricsRecord{Tone: analytics.String(dominantLabel(doc, toneKeywords, ToneNeutral))}
}

// dominantLabel returns the label whose set has the most distinct hits, or
// fallback when nothing matches.
func dominantLabel(doc *Document, sets []labelledSet, fallback string) string {
	best, bestCount := fallback, 0
	for _, s := range sets {
		if n := len(s.set.distinct(doc)); n > bestCount {
			best, bestCount = s.label, n
		}
	}
	return best
}
