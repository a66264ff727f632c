package model

// RefusalPhrase is one of exactly three fixed refusal strings.
type RefusalPhrase string

// The closed refusal phrase set. These strings are returned verbatim.
const (
	RefusalNotCovered       RefusalPhrase = "This isn't covered in my local context."
	RefusalNotEnoughData    RefusalPhrase = "I don't have enough local data to answer that."
	RefusalLimitedToContext RefusalPhrase = "My knowledge is limited to what's in the context file."
)

// RefusalPhrases returns the closed set in its canonical order.
func RefusalPhrases() []RefusalPhrase {
	return []RefusalPhrase{RefusalNotCovered, RefusalNotEnoughData, RefusalLimitedToContext}
}

// RefusalPhraseByNumber maps the 1-based phrase number used in configuration.
func RefusalPhraseByNumber(n int) (RefusalPhrase, bool) {
	phrases := RefusalPhrases()
	if n < 1 || n > len(phrases) {
		return "", false
	}
	return phrases[n-1], true
}

// IsRefusalPhrase reports whether text is exactly one of the refusal phrases.
func IsRefusalPhrase(text string) bool {
	for _, p := range RefusalPhrases() {
		if text == string(p) {
			return true
		}
	}
	return false
}

// RefusalReason is the diagnostic cause behind a refusal. It never changes
// the wording shown to the user.
type RefusalReason string

// Refusal reasons.
const (
	ReasonNone              RefusalReason = ""
	ReasonOutOfScope        RefusalReason = "out_of_scope"
	ReasonNoCityBound       RefusalReason = "no_city_bound"
	ReasonGenerationFailed  RefusalReason = "generation_failed"
	ReasonGeneratorDeclined RefusalReason = "generator_declined"
	ReasonGuardRejected     RefusalReason = "guard_rejected"
	ReasonInternalError     RefusalReason = "internal_error"
)

// Status is the envelope status reported to interface layers.
type Status string

// Envelope statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is the final output of one pipeline run: either a guard-approved
// answer or one of the refusal phrases.
type Response struct {
	Text                     string
	City                     City
	Status                   Status
	RefusalReason            RefusalReason
	Detail                   string
	SourceContextFingerprint string
	IsRefusal                bool
	GuardApproved            bool
}

// Envelope is the transport-agnostic wire form of a Response.
type Envelope struct {
	Response  string `json:"response"`
	City      string `json:"city"`
	Status    Status `json:"status"`
	IsRefusal bool   `json:"is_refusal"`
}

// Envelope converts the response to its wire form.
func (r Response) Envelope() Envelope {
	return Envelope{
		Response:  r.Text,
		IsRefusal: r.IsRefusal,
		City:      r.City.Title(),
		Status:    r.Status,
	}
}
