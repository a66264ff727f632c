package guard

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/local-guide/internal/model"
)

// Config tunes the grounding thresholds.
type Config struct {
	// AllowedTerms are words accepted even when absent from the context.
	AllowedTerms []string
	// MaxUngroundedRatio is the largest share of content words that may be
	// missing from the context. Zero allows none.
	MaxUngroundedRatio float64
	// MinOverlap is the smallest share of content words that must appear in
	// the context.
	MinOverlap float64
}

// DefaultConfig is the strictest useful configuration.
func DefaultConfig() Config {
	return Config{
		MaxUngroundedRatio: 0,
		MinOverlap:         0.3,
	}
}

var externalPatterns = compilePatterns(
	`according to`, `research shows`, `studies (?:show|indicate|suggest)`, `experts say`,
	`wikipedia`, `google`, `internet`, `online sources?`, `websites?`, `statistics show`,
	`as of \d{4}`, `census`, `sources say`, `reportedly`,
)

var speculativePatterns = compilePatterns(
	`i think`, `i believe`, `in my opinion`, `personally`, `probably`, `perhaps`,
	`maybe`, `might be`, `possibly`, `likely`, `generally`, `usually`, `typically`,
	`commonly`, `often`, `worldwide`, `globally`, `internationally`, `across india`,
	`i guess`, `i assume`, `it seems`,
)

func compilePatterns(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)\b` + p + `\b`)
	}
	return out
}

// evaluation is the shared input of every check.
type evaluation struct {
	index     *contextIndex
	candidate string
}

type check func(g *RuleGuard, e *evaluation) *Violation

// RuleGuard is a deterministic, rule-based Guard.
type RuleGuard struct {
	allowed map[string]struct{}
	logger  *slog.Logger
	checks  []check
	cfg     Config
}

// NewRuleGuard creates a guard. A nil logger uses slog.Default.
func NewRuleGuard(cfg Config, logger *slog.Logger) *RuleGuard {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedTerms))
	for _, t := range cfg.AllowedTerms {
		if t = strings.TrimSpace(t); t != "" {
			allowed[normalizeWord(t)] = struct{}{}
		}
	}

	return &RuleGuard{
		cfg:     cfg,
		allowed: allowed,
		logger:  logger,
		checks: []check{
			(*RuleGuard).checkExternal,
			(*RuleGuard).checkSpeculative,
			(*RuleGuard).checkNumbers,
			(*RuleGuard).checkEntities,
			(*RuleGuard).checkNegations,
		},
	}
}

// Verify approves candidate only if it is a refusal phrase or every check
// passes against c. A panic inside a check rejects the candidate.
func (g *RuleGuard) Verify(candidate string, c model.Context) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("guard check panicked", "city", c.City, "panic", r)
			verdict = Verdict{
				Reason: ReasonProcessingError,
				Violations: []Violation{{
					Code:    ReasonProcessingError,
					Message: fmt.Sprintf("guard evaluation failed: %v", r),
				}},
			}
		}
	}()

	return g.verify(candidate, c)
}

func (g *RuleGuard) verify(candidate string, c model.Context) Verdict {
	trimmed := strings.TrimSpace(candidate)
	switch {
	case trimmed == "":
		return rejectWith([]Violation{{Code: ReasonProcessingError, Message: "candidate is empty"}}, 0)
	case !utf8.ValidString(candidate):
		return rejectWith([]Violation{{Code: ReasonProcessingError, Message: "candidate is not valid UTF-8"}}, 0)
	case strings.TrimSpace(c.Text) == "":
		return rejectWith([]Violation{{Code: ReasonProcessingError, Message: "context is empty"}}, 0)
	}

	if model.IsRefusalPhrase(trimmed) {
		v := approve(1)
		v.Refusal = true
		return v
	}

	e := &evaluation{
		candidate: strings.ReplaceAll(trimmed, "’", "'"),
		index:     newContextIndex(c.Text),
	}

	var violations []Violation
	for _, ch := range g.checks {
		if v := ch(g, e); v != nil {
			violations = append(violations, *v)
		}
	}

	overlap, claim := g.checkClaims(e)
	if claim != nil {
		violations = append(violations, *claim)
	}

	if len(violations) > 0 {
		g.logger.Debug("candidate rejected",
			"city", c.City,
			"reason", violations[0].Code,
			"violations", len(violations),
			"overlap", overlap)
		return rejectWith(violations, overlap)
	}
	return approve(overlap)
}

func (g *RuleGuard) checkExternal(e *evaluation) *Violation {
	hits := patternHits(externalPatterns, e)
	if len(hits) == 0 {
		return nil
	}
	return &Violation{
		Code:     ReasonExternalKnowledge,
		Message:  "candidate cites sources outside the context",
		Evidence: hits,
	}
}

func (g *RuleGuard) checkSpeculative(e *evaluation) *Violation {
	hits := patternHits(speculativePatterns, e)
	if len(hits) == 0 {
		return nil
	}
	return &Violation{
		Code:     ReasonSpeculative,
		Message:  "candidate hedges or generalizes beyond the context",
		Evidence: hits,
	}
}

// patternHits returns the phrases matched in the candidate that the context
// itself does not contain.
func patternHits(patterns []*regexp.Regexp, e *evaluation) []string {
	var hits []string
	for _, re := range patterns {
		m := re.FindString(e.candidate)
		if m == "" || re.MatchString(e.index.lower) {
			continue
		}
		hits = append(hits, strings.ToLower(m))
	}
	return hits
}

func (g *RuleGuard) checkNumbers(e *evaluation) *Violation {
	var missing []string
	for _, n := range numberPattern.FindAllString(e.candidate, -1) {
		norm := normalizeNumber(n)
		if _, ok := e.index.numbers[norm]; ok {
			continue
		}
		missing = append(missing, norm)
	}
	if len(missing) == 0 {
		return nil
	}
	return &Violation{
		Code:     ReasonUngroundedNumber,
		Message:  "candidate states numbers not present in the context",
		Evidence: dedupe(missing),
	}
}

func (g *RuleGuard) checkEntities(e *evaluation) *Violation {
	var missing []string
	for _, entity := range entities(e.candidate) {
		if g.entityGrounded(entity, e.index) {
			continue
		}
		missing = append(missing, entity)
	}
	if len(missing) == 0 {
		return nil
	}
	return &Violation{
		Code:     ReasonUngroundedEntity,
		Message:  "candidate names people, places or things not present in the context",
		Evidence: dedupe(missing),
	}
}

// checkNegations rejects negated sentences whose content the context states
// affirmatively.
func (g *RuleGuard) checkNegations(e *evaluation) *Violation {
	var contradicted []string
	for _, sentence := range splitSentences(e.candidate) {
		words, negated := contentWords(sentence)
		if !negated || len(words) == 0 {
			continue
		}
		if e.index.affirms(words) {
			contradicted = append(contradicted, strings.TrimSpace(sentence))
		}
	}
	if len(contradicted) == 0 {
		return nil
	}
	return &Violation{
		Code:     ReasonContradiction,
		Message:  "candidate negates statements the context makes",
		Evidence: contradicted,
	}
}

func (g *RuleGuard) entityGrounded(entity string, idx *contextIndex) bool {
	if idx.containsPhrase(entity) {
		return true
	}
	for _, w := range strings.Fields(entity) {
		if _, ok := g.allowed[normalizeWord(w)]; ok {
			continue
		}
		if !idx.hasWord(w) {
			return false
		}
	}
	return true
}

// checkClaims measures how much of the candidate's vocabulary comes from the
// context. It returns the grounded share and a violation if the thresholds
// are not met.
func (g *RuleGuard) checkClaims(e *evaluation) (float64, *Violation) {
	var total, grounded int
	var missing []string

	for _, w := range wordPattern.FindAllString(e.candidate, -1) {
		if isNegation(w) {
			total++
			if _, ok := e.index.words[strings.ToLower(w)]; ok {
				grounded++
			} else {
				missing = append(missing, strings.ToLower(w))
			}
			continue
		}
		norm := normalizeWord(w)
		if utf8.RuneCountInString(norm) < 2 || isNumeric(norm) {
			continue
		}
		if _, stop := stopwords[norm]; stop {
			continue
		}
		if _, stop := stopwords[strings.ToLower(w)]; stop {
			continue
		}
		total++
		if _, ok := g.allowed[norm]; ok {
			grounded++
			continue
		}
		if e.index.hasWord(w) {
			grounded++
			continue
		}
		missing = append(missing, strings.ToLower(w))
	}

	if total == 0 {
		return 0, &Violation{
			Code:    ReasonUngroundedClaim,
			Message: "candidate has no content words to ground",
		}
	}

	overlap := float64(grounded) / float64(total)
	ungrounded := float64(total-grounded) / float64(total)

	switch {
	case ungrounded > g.cfg.MaxUngroundedRatio:
		return overlap, &Violation{
			Code:     ReasonUngroundedClaim,
			Message:  fmt.Sprintf("%d of %d content words are not in the context", total-grounded, total),
			Evidence: dedupe(missing),
		}
	case overlap < g.cfg.MinOverlap:
		return overlap, &Violation{
			Code:    ReasonUngroundedClaim,
			Message: fmt.Sprintf("only %.0f%% of content words are grounded (need %.0f%%)", overlap*100, g.cfg.MinOverlap*100),
		}
	default:
		return overlap, nil
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}
