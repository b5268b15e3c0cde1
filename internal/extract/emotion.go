package extract

import "github.com/tonetrace/tonetrace/internal/analytics"

var emotionKeywords = []labelledSet{
	{"joy", newPhraseSet("happy", "joy", "glad", "delighted", "excited", "cheerful", "pleased", "proud", "thrilled", "grateful")},
	{"sadness", newPhraseSet("sad", "unhappy", "cry", "cried", "lonely", "miserable", "depressed", "grief", "sorrow", "regret")},
	{"anger", newPhraseSet("angry", "furious", "annoyed", "hate", "rage", "mad", "irritated", "frustrated", "outraged", "resent")},
	{"fear", newPhraseSet("afraid", "scared", "fear", "worried", "anxious", "nervous", "terrified", "panic", "dread", "frightened")},
	{"surprise", newPhraseSet("surprised", "amazed", "astonished", "shocked", "unexpected", "suddenly", "wow", "stunned")},
}

func init() {
	Register(NewFunc("emotion", extractEmotion))
}

func extractEmotion(doc *Document) *analytics.MetricsRecord {
	return &analytics.MetricsRecord{Emotion: analytics.String(dominantLabel(doc, emotionKeywords, "neutral"))}
}
