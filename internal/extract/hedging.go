package extract

import "github.com/tonetrace/tonetrace/internal/analytics"

var hedgingPhrases = newPhraseSet(
	"maybe", "perhaps", "sort of", "kind of", "possibly", "likely",
	"arguably", "could be", "might be", "seems", "I think", "in my opinion",
	"I feel", "suggests", "indicates", "appears to", "could", "should", "would",
)

func init() {
	Register(NewFunc("hedging", extractHedging))
}

// extractHedging counts the distinct hedging phrases used in the text.
func extractHedging(doc *Document) *analytics.MetricsRecord {
	return &analytics.MetricsRecord{
		HedgingCount: analytics.Int(len(hedgingPhrases.distinct(doc))),
	}
}

// HedgingPhrases returns the hedging phrases found in text.
func HedgingPhrases(text string) []string {
	return hedgingPhrases.distinct(NewDocument(text))
}
