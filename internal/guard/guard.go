// Package guard verifies that a candidate answer is grounded in the bound
// city context. Verification is default-deny: a candidate is approved only
// when every check passes.
package guard

import "github.com/Veraticus/local-guide/internal/model"

// ReasonCode names the check that rejected a candidate.
type ReasonCode string

// Reason codes.
const (
	ReasonNone              ReasonCode = ""
	ReasonProcessingError   ReasonCode = "guard_processing_error"
	ReasonExternalKnowledge ReasonCode = "external_knowledge_detected"
	ReasonSpeculative       ReasonCode = "speculative_language"
	ReasonUngroundedNumber  ReasonCode = "ungrounded_number"
	ReasonUngroundedEntity  ReasonCode = "ungrounded_entity"
	ReasonUngroundedClaim   ReasonCode = "ungrounded_claim"
	ReasonContradiction     ReasonCode = "contradicts_context"
)

// Violation is one failed check.
type Violation struct {
	Code     ReasonCode `json:"code"`
	Message  string     `json:"message"`
	Evidence []string   `json:"evidence,omitempty"`
}

// Verdict is the guard's decision on one candidate.
type Verdict struct {
	Reason     ReasonCode  `json:"reason,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
	Overlap    float64     `json:"overlap"`
	Approved   bool        `json:"approved"`
	Refusal    bool        `json:"refusal"`
}

// Guard verifies candidates against a context. Implementations must be
// deterministic and must never approve on internal failure.
type Guard interface {
	Verify(candidate string, c model.Context) Verdict
}

func approve(overlap float64) Verdict {
	return Verdict{Approved: true, Overlap: overlap}
}

func rejectWith(violations []Violation, overlap float64) Verdict {
	return Verdict{
		Reason:     violations[0].Code,
		Violations: violations,
		Overlap:    overlap,
	}
}
