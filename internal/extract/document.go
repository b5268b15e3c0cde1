package extract

import (
	"math"
	"regexp"
	"strings"
)

var (
	wordPattern     = regexp.MustCompile(`[a-z0-9]+(?:'[a-z]+)?`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	letterPattern   = regexp.MustCompile(`[A-Za-z]`)
)

// Document is a tokenized text shared by every extractor in one pipeline run.
// It is read-only after NewDocument.
type Document struct {
	Text string

	// Words are lowercase word tokens in text order.
	Words []string

	// Sentences are trimmed sentences in text order, including terminal
	// punctuation.
	Sentences []string

	// padded is the words joined by single spaces with a leading and a
	// trailing space, used for whole-phrase matching.
	padded []byte
}

// NewDocument tokenizes text
func NewDocument(text string) *Document {
	doc := &Document{Text: text}
	doc.Words = wordPattern.FindAllString(strings.ToLower(text), -1)

	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if letterPattern.MatchString(s) {
			doc.Sentences = append(doc.Sentences, s)
		}
	}

	doc.padded = []byte(" " + strings.Join(doc.Words, " ") + " ")
	return doc
}

// Empty reports whether the text has no words.
func (d *Document) Empty() bool {
	return len(d.Words) == 0
}

// SentenceCount returns the number of sentences, at least 1 for non-empty text.
func (d *Document) SentenceCount() int {
	if d.Empty() {
		return 0
	}
	if len(d.Sentences) == 0 {
		return 1
	}
	return len(d.Sentences)
}

// SentenceWords tokenizes one sentence the same way as the document.
func SentenceWords(sentence string) []string {
	return wordPattern.FindAllString(strings.ToLower(sentence), -1)
}

// Syllables estimates the syllable count of a lowercase word by counting
// vowel groups. Every word has at least one syllable.
func Syllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if count > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
