package guard

import (
	"testing"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func madurai() model.Context {
	return model.Context{
		City:        "madurai",
		Text:        testutil.MaduraiKnowledge,
		Fingerprint: model.Fingerprint(testutil.MaduraiKnowledge),
	}
}

func newTestGuard(cfg Config) *RuleGuard {
	return NewRuleGuard(cfg, common.DiscardLogger())
}

func TestRuleGuard_Verify(t *testing.T) {
	g := newTestGuard(DefaultConfig())

	tests := []struct {
		name       string
		candidate  string
		wantReason ReasonCode
		approved   bool
	}{
		{
			name:      "verbatim fact",
			candidate: "Jigarthanda is a cold drink made with milk, almond gum, sarsaparilla syrup and ice cream.",
			approved:  true,
		},
		{
			name:       "one new verb",
			candidate:  "Share autos from Periyar Bus Stand to Meenakshi Temple cost 20 rupees.",
			wantReason: ReasonUngroundedClaim,
		},
		{
			name:      "grounded number and entities",
			candidate: "Share autos run from Periyar Bus Stand to Meenakshi Temple for 20 rupees.",
			approved:  true,
		},
		{
			name:      "plural and possessive forms",
			candidate: "The temple's towers gather evening crowds.",
			approved:  true,
		},
		{
			name:       "ungrounded number",
			candidate:  "Share autos to Meenakshi Temple cost 35 rupees.",
			wantReason: ReasonUngroundedNumber,
		},
		{
			name:       "tamil numerals",
			candidate:  "Share autos run from Periyar Bus Stand to Meenakshi Temple for ௫௦ rupees.",
			wantReason: ReasonUngroundedNumber,
		},
		{
			name:       "devanagari numerals",
			candidate:  "Share autos run from Periyar Bus Stand to Meenakshi Temple for ५० rupees.",
			wantReason: ReasonUngroundedNumber,
		},
		{
			name:       "fullwidth numerals",
			candidate:  "Share autos run from Periyar Bus Stand to Meenakshi Temple for ５０ rupees.",
			wantReason: ReasonUngroundedNumber,
		},
		{
			name:       "ungrounded entity",
			candidate:  "Kari dosa is served at Konar Mess and Amma Mess.",
			wantReason: ReasonUngroundedEntity,
		},
		{
			name:       "external source",
			candidate:  "According to Wikipedia, Jigarthanda is a cold drink.",
			wantReason: ReasonExternalKnowledge,
		},
		{
			name:       "speculation",
			candidate:  "Jigarthanda is probably a cold drink.",
			wantReason: ReasonSpeculative,
		},
		{
			name:       "unknown word",
			candidate:  "Jigarthanda is a cold drink with saffron.",
			wantReason: ReasonUngroundedClaim,
		},
		{
			name:       "only stopwords",
			candidate:  "It is what it is.",
			wantReason: ReasonUngroundedClaim,
		},
		{
			name:       "digits only",
			candidate:  "20",
			wantReason: ReasonUngroundedClaim,
		},
		{
			name:       "empty candidate",
			candidate:  "   ",
			wantReason: ReasonProcessingError,
		},
		{
			name:       "invalid utf8",
			candidate:  "Jigarthanda \xff",
			wantReason: ReasonProcessingError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.Verify(tt.candidate, madurai())
			assert.Equal(t, tt.approved, v.Approved, "violations: %+v", v.Violations)
			if tt.approved {
				assert.Empty(t, v.Violations)
				assert.Equal(t, ReasonNone, v.Reason)
				return
			}
			assert.Equal(t, tt.wantReason, v.Reason)
			require.NotEmpty(t, v.Violations)
			assert.Equal(t, tt.wantReason, v.Violations[0].Code)
		})
	}
}

func TestRuleGuard_FailClosedOnAnyUnknownToken(t *testing.T) {
	g := newTestGuard(DefaultConfig())
	base := "Kari dosa is a mutton dosa served at Konar Mess on Simmakkal Road"

	require.True(t, g.Verify(base+".", madurai()).Approved)

	for _, extra := range []string{"tasty", "Coimbatore", "1998", "cheap", "halal"} {
		t.Run(extra, func(t *testing.T) {
			v := g.Verify(base+" "+extra+".", madurai())
			assert.False(t, v.Approved)
		})
	}
}

func TestRuleGuard_Negations(t *testing.T) {
	g := newTestGuard(DefaultConfig())

	tests := []struct {
		name       string
		candidate  string
		wantReason ReasonCode
		approved   bool
	}{
		{
			name:       "negated fact",
			candidate:  "Jigarthanda is not a cold drink.",
			wantReason: ReasonContradiction,
		},
		{
			name:       "contracted negation",
			candidate:  "Jigarthanda isn't a cold drink.",
			wantReason: ReasonContradiction,
		},
		{
			name:       "never",
			candidate:  "Kari dosa is never served at Konar Mess.",
			wantReason: ReasonContradiction,
		},
		{
			name:      "negation stated by the context",
			candidate: "The temple does not allow phones inside.",
			approved:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.Verify(tt.candidate, madurai())
			assert.Equal(t, tt.approved, v.Approved, "violations: %+v", v.Violations)
			if !tt.approved {
				assert.Equal(t, tt.wantReason, v.Reason)
			}
		})
	}
}

func TestRuleGuard_NegationMustBeGrounded(t *testing.T) {
	text := "Jigarthanda is a cold drink made with milk. Shops near the Meenakshi Temple serve it all day."
	c := model.Context{City: "madurai", Text: text, Fingerprint: model.Fingerprint(text)}
	g := newTestGuard(DefaultConfig())

	v := g.Verify("Jigarthanda is not a cold drink. Shops near the Meenakshi Temple do not serve it.", c)
	assert.False(t, v.Approved)
	assert.Equal(t, ReasonContradiction, v.Reason)

	codes := make([]ReasonCode, 0, len(v.Violations))
	for _, violation := range v.Violations {
		codes = append(codes, violation.Code)
	}
	assert.Contains(t, codes, ReasonUngroundedClaim)

	assert.True(t, g.Verify("Shops near the Meenakshi Temple serve it all day.", c).Approved)
}

func TestRuleGuard_RefusalPhrases(t *testing.T) {
	g := newTestGuard(DefaultConfig())
	for _, phrase := range model.RefusalPhrases() {
		t.Run(string(phrase), func(t *testing.T) {
			for i := 0; i < 3; i++ {
				v := g.Verify(string(phrase), madurai())
				assert.True(t, v.Approved)
				assert.True(t, v.Refusal)
			}
			padded := g.Verify("  "+string(phrase)+"\n", madurai())
			assert.True(t, padded.Approved)

			altered := g.Verify(string(phrase)+" Sorry!", madurai())
			assert.False(t, altered.Refusal)
		})
	}
}

func TestRuleGuard_EmptyContext(t *testing.T) {
	g := newTestGuard(DefaultConfig())
	v := g.Verify("Jigarthanda is a cold drink.", model.Context{City: "madurai"})
	assert.False(t, v.Approved)
	assert.Equal(t, ReasonProcessingError, v.Reason)
}

func TestRuleGuard_Deterministic(t *testing.T) {
	g := newTestGuard(DefaultConfig())
	candidate := "Kari dosa at Amma Mess costs 150 rupees, according to locals."

	first := g.Verify(candidate, madurai())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.Verify(candidate, madurai()))
	}
	assert.False(t, first.Approved)
	codes := make([]ReasonCode, 0, len(first.Violations))
	for _, v := range first.Violations {
		codes = append(codes, v.Code)
	}
	assert.Equal(t, []ReasonCode{
		ReasonExternalKnowledge,
		ReasonUngroundedNumber,
		ReasonUngroundedEntity,
		ReasonUngroundedClaim,
	}, codes)
}

func TestRuleGuard_ContextMayUseFlaggedPhrases(t *testing.T) {
	text := testutil.MaduraiKnowledge + "\nBuses usually leave Periyar Bus Stand every hour.\n"
	c := model.Context{City: "madurai", Text: text, Fingerprint: model.Fingerprint(text)}

	v := newTestGuard(DefaultConfig()).Verify("Buses usually leave Periyar Bus Stand every hour.", c)
	assert.True(t, v.Approved, "violations: %+v", v.Violations)
}

func TestRuleGuard_Thresholds(t *testing.T) {
	candidate := "Jigarthanda is a cold drink with saffron."

	t.Run("ratio tolerance", func(t *testing.T) {
		g := newTestGuard(Config{MaxUngroundedRatio: 0.5, MinOverlap: 0.3})
		assert.True(t, g.Verify(candidate, madurai()).Approved)
	})

	t.Run("allowed terms", func(t *testing.T) {
		g := newTestGuard(Config{AllowedTerms: []string{"Saffron"}, MinOverlap: 0.3})
		v := g.Verify(candidate, madurai())
		assert.True(t, v.Approved)
		assert.InDelta(t, 1.0, v.Overlap, 1e-9)
	})

	t.Run("min overlap", func(t *testing.T) {
		g := newTestGuard(Config{MaxUngroundedRatio: 1, MinOverlap: 0.9})
		v := g.Verify(candidate, madurai())
		assert.False(t, v.Approved)
		assert.Equal(t, ReasonUngroundedClaim, v.Reason)
	})
}

func TestRuleGuard_PanicRejects(t *testing.T) {
	g := newTestGuard(DefaultConfig())
	g.checks = append(g.checks, func(*RuleGuard, *evaluation) *Violation {
		panic("boom")
	})

	v := g.Verify("Jigarthanda is a cold drink.", madurai())
	assert.False(t, v.Approved)
	assert.Equal(t, ReasonProcessingError, v.Reason)
	require.Len(t, v.Violations, 1)
	assert.Contains(t, v.Violations[0].Message, "boom")
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"temples":     "temple",
		"cities":      "city",
		"churches":    "church",
		"serving":     "serv",
		"served":      "serv",
		"bus":         "bus",
		"glass":       "glass",
		"temple's":    "temple",
		"Jigarthanda": "jigarthanda",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, normalizeWord(in))
		})
	}
}

func TestEntities(t *testing.T) {
	got := entities("The Famous Jigarthanda shop near Vilakkuthoon. It serves Kari Dosa")
	assert.Equal(t, []string{"Famous Jigarthanda", "Vilakkuthoon", "Kari Dosa"}, got)
}
