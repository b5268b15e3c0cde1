package extract

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// phraseSet matches whole words and phrases against a Document.
type phraseSet struct {
	phrases []string
	matcher *ahocorasick.Matcher
}

func newPhraseSet(phrases ...string) *phraseSet {
	padded := make([]string, len(phrases))
	normalized := make([]string, len(phrases))
	for i, p := range phrases {
		normalized[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
		padded[i] = " " + normalized[i] + " "
	}
	return &phraseSet{
		phrases: normalized,
		matcher: ahocorasick.NewStringMatcher(padded),
	}
}

// distinct returns each phrase found in doc once, in dictionary order.
func (s *phraseSet) distinct(doc *Document) []string {
	hits := s.matcher.MatchThreadSafe(doc.padded)
	if len(hits) == 0 {
		return nil
	}
	sort.Ints(hits)

	found := make([]string, 0, len(hits))
	last := -1
	for _, i := range hits {
		if i == last {
			continue
		}
		found = append(found, s.phrases[i])
		last = i
	}
	return found
}

// wordSet is a lookup table of single lowercase words.
type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

var stopwords = newWordSet(
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing",
	"down", "during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just", "me",
	"more", "most", "my", "myself", "no", "nor", "not", "now", "of", "off",
	"on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over",
	"own", "same", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "very", "was", "we", "were",
	"what", "when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves", "it's", "don't", "i'm", "can't",
)

// familiarWords approximates the Dale-Chall list of words known to most
// fourth graders. Stopwords are familiar too.
var familiarWords = newWordSet(
	"able", "above", "across", "after", "afternoon", "again", "age", "ago", "air", "almost",
	"alone", "along", "already", "also", "always", "animal", "another", "answer", "anything", "apple",
	"around", "away", "baby", "back", "bad", "ball", "bed", "began", "begin", "behind",
	"believe", "best", "better", "big", "bird", "black", "blue", "boat", "body", "book",
	"both", "box", "boy", "bring", "brother", "brown", "build", "busy", "buy", "call",
	"came", "car", "care", "carry", "cat", "children", "city", "class", "clean", "close",
	"cold", "color", "come", "country", "cover", "cut", "dark", "day", "dear", "different",
	"dinner", "dog", "door", "draw", "dress", "drink", "early", "earth", "easy", "eat",
	"end", "enough", "even", "evening", "ever", "every", "eye", "face", "fall", "family",
	"far", "farm", "fast", "father", "feel", "feet", "field", "find", "fire", "first",
	"fish", "floor", "flower", "food", "foot", "found", "friend", "full", "fun", "game",
	"garden", "gave", "get", "girl", "give", "glad", "go", "gold", "gone", "good",
	"got", "great", "green", "ground", "grow", "hand", "happy", "hard", "head", "hear",
	"heard", "help", "high", "hill", "hold", "home", "hope", "horse", "hot", "house",
	"idea", "important", "keep", "kind", "know", "lady", "land", "large", "last", "late",
	"laugh", "learn", "leave", "left", "let", "letter", "life", "light", "like", "little",
	"live", "long", "look", "lot", "love", "made", "make", "man", "many", "may",
	"mean", "men", "might", "money", "morning", "mother", "move", "much", "music", "must",
	"name", "near", "need", "never", "new", "next", "nice", "night", "nothing", "number",
	"often", "old", "open", "paper", "part", "people", "person", "picture", "place", "plant",
	"play", "please", "point", "pretty", "put", "question", "quick", "rain", "read", "ready",
	"really", "red", "remember", "rest", "right", "river", "road", "room", "run", "said",
	"saw", "say", "school", "sea", "second", "see", "seem", "sentence", "set", "several",
	"show", "side", "simple", "sister", "sit", "sleep", "small", "something", "sometimes", "song",
	"soon", "sound", "start", "stay", "still", "stop", "story", "street", "strong", "study",
	"summer", "sun", "sure", "table", "take", "talk", "teacher", "tell", "thing", "think",
	"thought", "time", "today", "together", "told", "took", "town", "tree", "try", "turn",
	"under", "until", "upon", "use", "want", "warm", "watch", "water", "way", "well",
	"went", "white", "whole", "window", "winter", "wish", "woman", "word", "work", "world",
	"write", "year", "yellow", "yes", "yesterday", "young",
)

func familiar(w string) bool {
	return stopwords.has(w) || familiarWords.has(w)
}
