package extract

import "github.com/tonetrace/tonetrace/internal/analytics"

func init() {
	Register(NewFunc("complexity", extractComplexity))
	Register(NewFunc("lexical_diversity", extractLexicalDiversity))
	Register(NewFunc("lexical_richness", extractLexicalRichness))
}

// extractComplexity reports words per sentence and the share of content
// (non-stopword) words.
func extractComplexity(doc *Document) *analytics.MetricsRecord {
	content := 0
	for _, w := range doc.Words {
		if !stopwords.has(w) {
			content++
		}
	}
	total := len(doc.Words)
	return &analytics.MetricsRecord{
		Complexity: &analytics.ComplexityMetrics{
			SentenceLength: analytics.Float(round(float64(total)/float64(doc.SentenceCount()), 2)),
			LexicalDensity: analytics.Float(round(float64(content)/float64(total), 3)),
		},
	}
}

// extractLexicalDiversity reports the type-token ratio.
func extractLexicalDiversity(doc *Document) *analytics.MetricsRecord {
	unique := make(map[string]struct{}, len(doc.Words))
	for _, w := range doc.Words {
		unique[w] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(doc.Words))
	return &analytics.MetricsRecord{LexicalDiversity: analytics.Float(round(ratio, 4))}
}

// extractLexicalRichness reports the share of unfamiliar words among the
// alphabetic non-stopword tokens. Texts without such tokens yield nothing.
func extractLexicalRichness(doc *Document) *analytics.MetricsRecord {
	tokens, rare := 0, 0
	for _, w := range doc.Words {
		if stopwords.has(w) || !isAlpha(w) {
			continue
		}
		tokens++
		if !familiarWords.has(w) {
			rare++
		}
	}
	if tokens == 0 {
		return nil
	}
	return &analytics.MetricsRecord{LexicalRichness: analytics.Float(round(float64(rare)/float64(tokens), 3))}
}

func isAlpha(w string) bool {
	for _, r := range w {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
