package scope

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/local-guide/internal/model"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxQueryLength is the longest query, in runes, that is classified.
const DefaultMaxQueryLength = 1000

const defaultMemoSize = 1024

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	punctuationRun = regexp.MustCompile(`[!?]{3,}`)
	ellipsisRun    = regexp.MustCompile(`\.{3,}`)
)

// KeywordClassifier scores a query against per-topic keyword lists using
// whole-word matching. Verdicts are memoized in a bounded LRU.
type KeywordClassifier struct {
	memo      *lru.Cache[string, Verdict]
	keywords  map[model.Topic][]string
	excluded  []string
	cities    []string
	maxLength int
	memoSize  int
}

// Option configures a KeywordClassifier.
type Option func(*KeywordClassifier)

// WithMaxQueryLength overrides DefaultMaxQueryLength.
func WithMaxQueryLength(n int) Option {
	return func(c *KeywordClassifier) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

// WithExcludedPlaces replaces the out-of-coverage place list.
func WithExcludedPlaces(places []string) Option {
	return func(c *KeywordClassifier) {
		c.excluded = normalizePhrases(places)
	}
}

// WithCities sets the registered cities, enabling overview questions such as
// "tell me about Madurai".
func WithCities(cities []model.City) Option {
	return func(c *KeywordClassifier) {
		c.cities = c.cities[:0]
		for _, city := range cities {
			if n := model.NormalizeCity(string(city)); n != "" {
				c.cities = append(c.cities, string(n))
			}
		}
	}
}

// WithKeywords replaces the keyword list of one topic.
func WithKeywords(topic model.Topic, keywords ...string) Option {
	return func(c *KeywordClassifier) {
		c.keywords[topic] = normalizePhrases(keywords)
	}
}

// WithMemoSize sets the verdict memo capacity. Zero or less disables it.
func WithMemoSize(n int) Option {
	return func(c *KeywordClassifier) {
		c.memoSize = n
	}
}

// NewKeywordClassifier builds a classifier with the default taxonomy.
func NewKeywordClassifier(opts ...Option) (*KeywordClassifier, error) {
	c := &KeywordClassifier{
		keywords:  make(map[model.Topic][]string),
		excluded:  normalizePhrases(DefaultExcludedPlaces()),
		maxLength: DefaultMaxQueryLength,
		memoSize:  defaultMemoSize,
	}
	for topic, words := range DefaultKeywords() {
		c.keywords[topic] = normalizePhrases(words)
	}
	for _, opt := range opts {
		opt(c)
	}

	for topic := range c.keywords {
		if !knownTopic(topic) {
			return nil, fmt.Errorf("unknown topic %q", topic)
		}
	}

	// A registered city is never out of coverage.
	if len(c.cities) > 0 {
		kept := c.excluded[:0]
		for _, place := range c.excluded {
			if !containsString(c.cities, place) {
				kept = append(kept, place)
			}
		}
		c.excluded = kept
	}

	if c.memoSize > 0 {
		memo, err := lru.New[string, Verdict](c.memoSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create classification memo: %w", err)
		}
		c.memo = memo
	}
	return c, nil
}

// Classify returns the verdict for text. It never panics and always returns
// the same verdict for the same text.
//
// Only texts that could fit within the length limit are memoized, so the memo
// never holds over-length input.
func (c *KeywordClassifier) Classify(text string) Verdict {
	memoize := c.memo != nil && len(text) <= utf8.UTFMax*c.maxLength
	if memoize {
		if v, ok := c.memo.Get(text); ok {
			return v.clone()
		}
	}

	v := c.classify(text)

	if memoize && v.Reason != model.ScopeReasonQueryTooLong {
		c.memo.Add(text, v.clone())
	}
	return v
}

func (c *KeywordClassifier) classify(text string) Verdict {
	sanitized := strings.ToValidUTF8(text, " ")
	normalized := Preprocess(sanitized)

	if normalized == "" {
		return reject("", model.ScopeReasonEmptyQuery)
	}
	if utf8.RuneCountInString(strings.TrimSpace(sanitized)) > c.maxLength {
		return reject(normalized, model.ScopeReasonQueryTooLong)
	}
	if !strings.ContainsFunc(normalized, unicode.IsLetter) {
		return reject(normalized, model.ScopeReasonNoLetters)
	}

	tokens := tokenize(normalized)
	joined := " " + strings.Join(tokens, " ") + " "

	for _, place := range c.excluded {
		if strings.Contains(joined, " "+place+" ") {
			return reject(normalized, model.ScopeReasonOutsideCoverage)
		}
	}

	if topics := c.rank(tokens, joined); len(topics) > 0 {
		return accept(normalized, topics)
	}

	if c.isOverview(joined) {
		return accept(normalized, []model.Topic{model.TopicLifestyle})
	}

	return reject(normalized, model.ScopeReasonUnsupportedTopic)
}

// rank returns every matched topic, best first. Whole-word hits score 2 and
// prefix hits ("restaurants" for "restaurant") score 1; ties keep taxonomy
// order.
func (c *KeywordClassifier) rank(tokens []string, joined string) []model.Topic {
	type scored struct {
		topic model.Topic
		score int
	}

	var matches []scored
	for _, topic := range model.Topics() {
		score := 0
		for _, kw := range c.keywords[topic] {
			score += matchScore(kw, tokens, joined)
		}
		if score > 0 {
			matches = append(matches, scored{topic: topic, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	topics := make([]model.Topic, len(matches))
	for i, m := range matches {
		topics[i] = m.topic
	}
	return topics
}

func matchScore(keyword string, tokens []string, joined string) int {
	if strings.Contains(keyword, " ") {
		if strings.Contains(joined, " "+keyword+" ") {
			return 2
		}
		return 0
	}

	score := 0
	for _, tok := range tokens {
		switch {
		case tok == keyword || singular(tok) == keyword:
			return 2
		case len(keyword) >= 4 && strings.HasPrefix(tok, keyword):
			score = 1
		}
	}
	return score
}

func (c *KeywordClassifier) isOverview(joined string) bool {
	mentionsCity := false
	for _, city := range c.cities {
		if strings.Contains(joined, " "+city+" ") {
			mentionsCity = true
			break
		}
	}
	if !mentionsCity {
		return false
	}
	for _, phrase := range generalPhrases {
		if strings.Contains(joined, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// Preprocess trims, collapses whitespace and squashes runs of "!" / "?".
func Preprocess(text string) string {
	out := whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	out = punctuationRun.ReplaceAllString(out, "?")
	out = ellipsisRun.ReplaceAllString(out, "...")
	return out
}

// tokenize lower-cases text and splits it into words. Apostrophes inside a
// word are kept long enough to drop possessive and contracted suffixes.
func tokenize(text string) []string {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if i := strings.IndexByte(f, '\''); i >= 0 {
			f = f[:i]
		}
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func singular(tok string) string {
	switch {
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return tok[:len(tok)-1]
	default:
		return tok
	}
}

func normalizePhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := strings.Join(tokenize(p), " "); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func knownTopic(topic model.Topic) bool {
	for _, t := range model.Topics() {
		if t == topic {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (v Verdict) clone() Verdict {
	if v.Topics != nil {
		v.Topics = append([]model.Topic(nil), v.Topics...)
	}
	return v
}
