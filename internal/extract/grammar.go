package extract

import "github.com/tonetrace/tonetrace/internal/analytics"

var (
	negativeTerms = newWordSet("not", "no", "never", "none", "nothing", "nowhere", "nobody", "neither", "nor")
	conjunctions  = newWordSet("and", "but", "or", "so", "yet", "for", "nor")
	pluralSubject = newWordSet("they", "we", "you")
	singleSubject = newWordSet("he", "she", "it")
)

// GrammarIssue names one detected rule violation
type GrammarIssue struct {
	Type     string `json:"type"`
	Sentence string `json:"sentence"`
}

func init() {
	Register(NewFunc("grammar", extractGrammar))
}

func extractGrammar(doc *Document) *analytics.MetricsRecord {
	return &analytics.MetricsRecord{
		Grammar: &analytics.GrammarMetrics{NumErrors: analytics.Int(len(GrammarIssues(doc)))},
	}
}

// GrammarIssues applies the rule checks to every sentence of doc.
func GrammarIssues(doc *Document) []GrammarIssue {
	var issues []GrammarIssue
	for _, s := range doc.Sentences {
		words := SentenceWords(s)
		if doubleNegative(words) {
			issues = append(issues, GrammarIssue{"double_negative", s})
		}
		if subjectVerbDisagreement(words) {
			issues = append(issues, GrammarIssue{"subject_verb_disagreement", s})
		}
		if runOn(words) {
			issues = append(issues, GrammarIssue{"run_on_sentence", s})
		}
		if len(words) < 3 {
			issues = append(issues, GrammarIssue{"sentence_fragment", s})
		}
	}
	return issues
}

func doubleNegative(words []string) bool {
	n := 0
	for _, w := range words {
		if negativeTerms.has(w) {
			n++
		}
	}
	return n > 1
}

func subjectVerbDisagreement(words []string) bool {
	for i := 0; i+1 < len(words); i++ {
		next := words[i+1]
		if pluralSubject.has(words[i]) && next == "is" {
			return true
		}
		if singleSubject.has(words[i]) && (next == "are" || next == "were") {
			return true
		}
	}
	return false
}

func runOn(words []string) bool {
	n := 0
	for _, w := range words {
		if conjunctions.has(w) {
			n++
		}
	}
	return n > 2
}
