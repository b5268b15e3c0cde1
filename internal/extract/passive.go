package extract

import (
	"strings"

	"github.com/tonetrace/tonetrace/internal/analytics"
)

var (
	beVerbs = newWordSet("is", "are", "was", "were", "be", "been", "being", "am", "get", "got", "gets")

	irregularParticiples = newWordSet(
		"born", "built", "bought", "brought", "caught", "chosen", "done", "drawn", "driven", "eaten",
		"fallen", "felt", "found", "forgotten", "given", "gone", "grown", "held", "hidden", "kept",
		"known", "laid", "led", "left", "lost", "made", "meant", "met", "paid", "put",
		"read", "run", "said", "seen", "sent", "set", "shown", "sold", "spent", "spoken",
		"stolen", "taken", "taught", "thought", "told", "understood", "won", "worn", "written",
	)
)

func init() {
	Register(NewFunc("passive_voice", extractPassiveVoice))
}

// extractPassiveVoice reports the share of sentences with a form of "be" (or
// "get") followed by a past participle, allowing one adverb in between.
func extractPassiveVoice(doc *Document) *analytics.MetricsRecord {
	sentences := doc.Sentences
	if len(sentences) == 0 {
		sentences = []string{doc.Text}
	}

	passive := 0
	for _, s := range sentences {
		if isPassive(SentenceWords(s)) {
			passive++
		}
	}
	return &analytics.MetricsRecord{
		PassiveVoice: &analytics.PassiveVoiceMetrics{
			Ratio: analytics.Float(round(float64(passive)/float64(len(sentences)), 3)),
		},
	}
}

func isPassive(words []string) bool {
	for i, w := range words {
		if !beVerbs.has(w) {
			continue
		}
		next := i + 1
		if next < len(words) && strings.HasSuffix(words[next], "ly") {
			next++
		}
		if next < len(words) && isParticiple(words[next]) {
			return true
		}
	}
	return false
}

func isParticiple(w string) bool {
	if irregularParticiples.has(w) {
		return true
	}
	return len(w) > 3 && strings.HasSuffix(w, "ed")
}
