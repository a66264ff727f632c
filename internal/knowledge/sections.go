package knowledge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Section is one heading-delimited part of a knowledge document.
type Section struct {
	Title string
	Body  string
	Index int
}

// ScoredSection is a Section ranked against a query.
type ScoredSection struct {
	Section
	Score float64
}

var (
	headingPattern = regexp.MustCompile(`^#{2,3}\s+(.+?)\s*$`)
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// Period is a coarse time of day.
type Period string

// Time-of-day periods.
const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
	PeriodNight     Period = "night"
)

var periodKeywords = map[Period][]string{
	PeriodMorning:   {"morning", "breakfast", "early", "sunrise"},
	PeriodAfternoon: {"afternoon", "lunch", "noon", "midday"},
	PeriodEvening:   {"evening", "dinner", "sunset"},
	PeriodNight:     {"night", "late", "midnight"},
}

var timingKeywords = []string{"open", "close", "timing", "timings", "hours", "when", "time"}

var timingMarkers = []string{"am", "pm", "hour", "hours", "time", "open", "close"}

// PeriodAt classifies the hour of t.
func PeriodAt(t time.Time) Period {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return PeriodMorning
	case h >= 12 && h < 17:
		return PeriodAfternoon
	case h >= 17 && h < 22:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// TimeContext is a one-line note about the current time of day.
func TimeContext(t time.Time) string {
	var note string
	switch PeriodAt(t) {
	case PeriodMorning:
		note = "breakfast places and early activities are most relevant"
	case PeriodAfternoon:
		note = "lunch options and midday activities are most suitable"
	case PeriodEvening:
		note = "dinner places and evening activities are ideal"
	default:
		note = "options may be limited and most places close early"
	}
	return fmt.Sprintf("Current time: %s (%s); %s.", t.Format("03:04 PM"), PeriodAt(t), note)
}

// Sections splits text on level two and three markdown headings. Text before
// the first heading becomes an untitled section. Empty sections are dropped.
func Sections(text string) []Section {
	var (
		sections []Section
		title    string
		body     strings.Builder
	)

	flush := func() {
		b := strings.TrimSpace(body.String())
		if b != "" {
			sections = append(sections, Section{Title: title, Body: b, Index: len(sections)})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if m := headingPattern.FindStringSubmatch(strings.TrimRight(line, "\r")); m != nil {
			flush()
			title = m[1]
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()

	return sections
}

// Retrieve ranks the sections of text against query and returns at most k,
// best first. Ties keep document order, so results are deterministic for a
// given now.
func Retrieve(text, query string, k int, now time.Time) []ScoredSection {
	queryWords := wordSet(query)
	if len(queryWords) == 0 || k <= 0 {
		return nil
	}

	sections := Sections(text)
	scored := make([]ScoredSection, 0, len(sections))
	for _, s := range sections {
		score := relevance(queryWords, s, PeriodAt(now))
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredSection{Section: s, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func relevance(queryWords map[string]struct{}, s Section, current Period) float64 {
	contentWords := wordSet(s.Body)
	titleWords := wordSet(s.Title)

	var inBody, inTitle int
	for w := range queryWords {
		if _, ok := contentWords[w]; ok {
			inBody++
		}
		if _, ok := titleWords[w]; ok {
			inTitle++
		}
	}

	n := float64(len(queryWords))
	score := 0.6*float64(inBody)/n + 0.3*float64(inTitle)/n
	score += 0.1 * timeBoost(queryWords, contentWords, current)

	if score > 1 {
		score = 1
	}
	return score
}

func timeBoost(queryWords, contentWords map[string]struct{}, current Period) float64 {
	boost := 0.0
	for _, period := range []Period{PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight} {
		keywords := periodKeywords[period]
		if !containsAny(queryWords, keywords) {
			continue
		}
		if period == current {
			boost += 0.3
		}
		if containsAny(contentWords, keywords) {
			boost += 0.2
		}
	}

	if containsAny(queryWords, timingKeywords) && containsAny(contentWords, timingMarkers) {
		boost += 0.4
	}

	if boost > 1 {
		boost = 1
	}
	return boost
}

func wordSet(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func containsAny(set map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
