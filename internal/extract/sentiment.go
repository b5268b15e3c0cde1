package extract

import "github.com/tonetrace/tonetrace/internal/analytics"

var (
	positiveWords = newWordSet(
		"good", "great", "excellent", "amazing", "wonderful", "fantastic", "love", "loved", "like",
		"enjoy", "enjoyed", "happy", "glad", "excited", "proud", "confident", "optimistic", "best",
		"better", "nice", "beautiful", "brilliant", "success", "successful", "helpful", "interesting",
		"pleased", "positive", "clear", "easy", "fun", "awesome", "grateful", "hope", "improve", "improved",
	)
	negativeWords = newWordSet(
		"bad", "terrible", "awful", "hate", "hated", "dislike", "angry", "frustrated", "disappointed",
		"worried", "sad", "confused", "difficult", "hard", "struggle", "struggled", "worst", "worse",
		"poor", "boring", "fail", "failed", "failure", "wrong", "problem", "negative", "annoying",
		"afraid", "painful", "ugly", "unfair", "unclear", "useless", "lost", "hurt", "fear",
	)
	negators = newWordSet("not", "no", "never", "don't", "didn't", "isn't", "wasn't", "can't", "won't", "nothing")
)

func init() {
	Register(NewFunc("sentiment", extractSentiment))
}

// extractSentiment scores polarity as (pos-neg)/(pos+neg) over lexicon hits.
// A negator directly before a hit flips it.
func extractSentiment(doc *Document) *analytics.MetricsRecord {
	pos, neg := 0, 0
	for i, w := range doc.Words {
		var score int
		switch {
		case positiveWords.has(w):
			score = 1
		case negativeWords.has(w):
			score = -1
		default:
			continue
		}
		if i > 0 && negators.has(doc.Words[i-1]) {
			score = -score
		}
		if score > 0 {
			pos++
		} else {
			neg++
		}
	}

	polarity := 0.0
	if pos+neg > 0 {
		polarity = float64(pos-neg) / float64(pos+neg)
	}
	return &analytics.MetricsRecord{
		Sentiment: &analytics.SentimentMetrics{Polarity: analytics.Float(round(polarity, 3))},
	}
}
