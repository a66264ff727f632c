package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		raw  string
		want City
		name string
	}{
		{name: "mixed case", raw: "Madurai", want: "madurai"},
		{name: "surrounding space", raw: "  DINDIGUL ", want: "dindigul"},
		{name: "empty", raw: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCity(tt.raw))
		})
	}

	assert.Equal(t, "Madurai", City("madurai").Title())
	assert.Equal(t, "New York", City("new york").Title())
	assert.Empty(t, City("").Title())
}

func TestContext_Intact(t *testing.T) {
	text := "Jigarthanda is a cold drink."
	c := Context{City: "madurai", Text: text, Fingerprint: Fingerprint(text)}

	assert.True(t, c.Intact())
	assert.False(t, c.IsZero())
	assert.Len(t, c.ShortFingerprint(), 12)
	assert.Equal(t, Fingerprint(text), Fingerprint(text))

	tampered := c
	tampered.Text += " It costs 5 rupees."
	assert.False(t, tampered.Intact())
	assert.True(t, c.Intact())

	assert.True(t, Context{}.IsZero())
	assert.False(t, Context{}.Intact())
}

func TestRefusalPhrases(t *testing.T) {
	phrases := RefusalPhrases()
	assert.Len(t, phrases, 3)

	for i, p := range phrases {
		got, ok := RefusalPhraseByNumber(i + 1)
		assert.True(t, ok)
		assert.Equal(t, p, got)
		assert.True(t, IsRefusalPhrase(string(p)))
	}

	for _, n := range []int{0, 4, -1} {
		_, ok := RefusalPhraseByNumber(n)
		assert.False(t, ok, "phrase %d", n)
	}

	assert.False(t, IsRefusalPhrase("This isn't covered in my local context"))
	assert.False(t, IsRefusalPhrase(" "+string(RefusalNotCovered)))
}

func TestResponse_Envelope(t *testing.T) {
	r := Response{
		Text:          string(RefusalNotEnoughData),
		City:          "madurai",
		Status:        StatusSuccess,
		IsRefusal:     true,
		RefusalReason: ReasonGenerationFailed,
		Detail:        "timeout",
	}

	assert.Equal(t, Envelope{
		Response:  string(RefusalNotEnoughData),
		City:      "Madurai",
		Status:    StatusSuccess,
		IsRefusal: true,
	}, r.Envelope())
}

func TestStats_Record(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	interactions := []Interaction{
		{Query: Query{SubmittedAt: t0, Classification: ClassificationAccepted}, Response: Response{Text: "answer"}},
		{Query: Query{SubmittedAt: t0.Add(time.Minute), Classification: ClassificationAccepted}, Response: Response{IsRefusal: true}},
		{Query: Query{SubmittedAt: t0.Add(2 * time.Minute), Classification: ClassificationRejected}, Response: Response{IsRefusal: true}},
		{Query: Query{SubmittedAt: t0.Add(3 * time.Minute), Classification: ClassificationRejected}, Response: Response{IsRefusal: true}},
	}

	var s Stats
	assert.Zero(t, s.RefusalRate())
	for _, in := range interactions {
		s.Record(in)
	}

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Accepted)
	assert.Equal(t, 1, s.Answered)
	assert.Equal(t, 3, s.Refused)
	assert.InDelta(t, 0.75, s.RefusalRate(), 1e-9)
	assert.Equal(t, t0, s.FirstQueryAt)
	assert.Equal(t, t0.Add(3*time.Minute), s.LastQueryAt)
}
