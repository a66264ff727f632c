package knowledge

import (
	"testing"
	"time"

	"github.com/Veraticus/local-guide/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSections(t *testing.T) {
	sections := Sections(testutil.MaduraiKnowledge)

	titles := make([]string, 0, len(sections))
	for _, s := range sections {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"", "Food", "Transport", "Local Language", "Safety", "Lifestyle"}, titles)
	assert.Contains(t, sections[1].Body, "Jigarthanda")
	assert.NotContains(t, sections[1].Body, "Share autos")
}

func TestSections_NoHeadings(t *testing.T) {
	sections := Sections("just one paragraph\nof text")
	require.Len(t, sections, 1)
	assert.Empty(t, sections[0].Title)
	assert.Empty(t, Sections("   \n"))
}

func TestRetrieve(t *testing.T) {
	noon := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		query     string
		wantFirst string
	}{
		{name: "food", query: "What is Jigarthanda?", wantFirst: "Food"},
		{name: "transport", query: "share autos to the temple", wantFirst: "Transport"},
		{name: "title match", query: "safety tips", wantFirst: "Safety"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Retrieve(testutil.MaduraiKnowledge, tt.query, 3, noon)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.wantFirst, got[0].Title)
			assert.LessOrEqual(t, len(got), 3)
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
			}
		})
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	at := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	first := Retrieve(testutil.DindigulKnowledge, "where to eat biryani for dinner", 5, at)
	second := Retrieve(testutil.DindigulKnowledge, "where to eat biryani for dinner", 5, at)
	assert.Equal(t, first, second)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	assert.Empty(t, Retrieve(testutil.MaduraiKnowledge, "?!", 3, time.Now()))
	assert.Empty(t, Retrieve(testutil.MaduraiKnowledge, "food", 0, time.Now()))
}

func TestPeriodAt(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2025, 1, 1, h, 0, 0, 0, time.UTC) }
	assert.Equal(t, PeriodMorning, PeriodAt(day(6)))
	assert.Equal(t, PeriodAfternoon, PeriodAt(day(12)))
	assert.Equal(t, PeriodEvening, PeriodAt(day(21)))
	assert.Equal(t, PeriodNight, PeriodAt(day(23)))
	assert.Equal(t, PeriodNight, PeriodAt(day(3)))
	assert.Contains(t, TimeContext(day(8)), "morning")
}
