package guard

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	numberPattern = regexp.MustCompile(`\p{Nd}+(?:[.,:]\p{Nd}+)*`)
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?`)
)

var stopwords = toSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "into", "as", "if", "so", "than", "then",
	"is", "are", "was", "were", "be", "been", "being", "am", "have",
	"has", "had", "do", "does", "did", "will", "would", "could", "should",
	"may", "might", "can", "must", "shall", "this", "that", "these", "those",
	"i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us", "them",
	"my", "your", "his", "its", "our", "their", "here", "there",
	"where", "when", "why", "how", "what", "who", "which", "very", "much",
	"many", "most", "more", "some", "any", "all", "each", "every", "no",
	"not", "only", "just", "also", "even", "still", "well", "yes", "it's",
	"up", "out", "about", "over", "after", "before", "around", "near",
	"don", "doesn", "isn", "aren", "won", "didn", "wasn", "weren",
	"shouldn", "couldn", "wouldn", "can't", "cannot",
)

// negations flip the meaning of a statement. They are never treated as
// stopwords by the claim check.
var negations = toSet(
	"no", "not", "never", "cannot", "nor", "none", "nothing", "nobody", "nowhere", "neither",
)

func isNegation(w string) bool {
	w = strings.ToLower(w)
	if _, ok := negations[w]; ok {
		return true
	}
	return strings.HasSuffix(w, "n't")
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// normalizeWord lower-cases w, drops possessives and applies light suffix
// stripping so "temples", "temple's" and "temple" compare equal.
func normalizeWord(w string) string {
	w = strings.ToLower(strings.ReplaceAll(w, "’", "'"))
	if i := strings.IndexByte(w, '\''); i >= 0 {
		w = w[:i]
	}
	return stem(w)
}

func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 4 && (strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes") ||
		strings.HasSuffix(w, "xes") || strings.HasSuffix(w, "sses")):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	case len(w) > 5 && strings.HasSuffix(w, "ing"):
		return w[:len(w)-3]
	case len(w) > 4 && strings.HasSuffix(w, "ed"):
		return w[:len(w)-2]
	default:
		return w
	}
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return w != ""
}

// contextIndex is the searchable form of a context text.
type contextIndex struct {
	words   map[string]struct{}
	numbers map[string]struct{}
	lower   string
	// affirmed holds the content words of each context sentence that
	// contains no negation.
	affirmed []map[string]struct{}
}

func newContextIndex(text string) *contextIndex {
	idx := &contextIndex{
		words:   make(map[string]struct{}),
		numbers: make(map[string]struct{}),
		lower:   strings.ToLower(text),
	}
	text = strings.ReplaceAll(text, "’", "'")
	for _, w := range wordPattern.FindAllString(text, -1) {
		idx.words[normalizeWord(w)] = struct{}{}
		idx.words[strings.ToLower(w)] = struct{}{}
	}
	for _, n := range numberPattern.FindAllString(text, -1) {
		idx.numbers[normalizeNumber(n)] = struct{}{}
	}
	for _, sentence := range splitSentences(text) {
		words, negated := contentWords(sentence)
		if negated || len(words) == 0 {
			continue
		}
		idx.affirmed = append(idx.affirmed, words)
	}
	return idx
}

// affirms reports whether one affirmative context sentence contains every
// word in words.
func (idx *contextIndex) affirms(words map[string]struct{}) bool {
	for _, sentence := range idx.affirmed {
		all := true
		for w := range words {
			if _, ok := sentence[w]; !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// contentWords returns the normalized non-stopwords of sentence and whether
// it contains a negation.
func contentWords(sentence string) (map[string]struct{}, bool) {
	words := make(map[string]struct{})
	negated := false
	for _, w := range wordPattern.FindAllString(sentence, -1) {
		if isNegation(w) {
			negated = true
			continue
		}
		norm := normalizeWord(w)
		if _, stop := stopwords[norm]; stop || utf8.RuneCountInString(norm) < 2 {
			continue
		}
		if _, stop := stopwords[strings.ToLower(w)]; stop {
			continue
		}
		words[norm] = struct{}{}
	}
	return words, negated
}

func (idx *contextIndex) hasWord(w string) bool {
	if _, ok := idx.words[normalizeWord(w)]; ok {
		return true
	}
	_, ok := idx.words[strings.ToLower(w)]
	return ok
}

// containsPhrase reports whether phrase occurs in the context on word
// boundaries, ignoring case.
func (idx *contextIndex) containsPhrase(phrase string) bool {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(phrase)) + `\b`)
	return re.MatchString(idx.lower)
}

func normalizeNumber(n string) string {
	n = strings.ReplaceAll(n, ",", "")
	return strings.TrimRight(n, ".:")
}

// entities returns runs of capitalized words. Capitalized stopwords ("The",
// "It") break a run and are never entities.
func entities(text string) []string {
	var (
		out     []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
		}
	}

	for _, sentence := range splitSentences(text) {
		words := wordPattern.FindAllString(sentence, -1)
		for _, w := range words {
			r := []rune(w)
			if len(r) == 0 || !unicode.IsUpper(r[0]) {
				flush()
				continue
			}
			if _, stop := stopwords[strings.ToLower(w)]; stop {
				flush()
				continue
			}
			current = append(current, w)
		}
		flush()
	}
	return out
}

var sentenceBoundary = regexp.MustCompile(`[.!?;:\n]+`)

func splitSentences(text string) []string {
	return sentenceBoundary.Split(text, -1)
}
