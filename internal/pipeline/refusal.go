package pipeline

import (
	"github.com/Veraticus/local-guide/internal/config"
	"github.com/Veraticus/local-guide/internal/model"
)

// RefusalPolicy is the total mapping from refusal reason to phrase.
type RefusalPolicy struct {
	phrases config.RefusalPhrases
}

// NewRefusalPolicy wraps a resolved mapping.
func NewRefusalPolicy(phrases config.RefusalPhrases) RefusalPolicy {
	return RefusalPolicy{phrases: phrases}
}

// Phrase returns the refusal phrase for reason.
func (p RefusalPolicy) Phrase(reason model.RefusalReason) model.RefusalPhrase {
	switch reason {
	case model.ReasonOutOfScope, model.ReasonNoCityBound:
		return p.phrases.ScopeRejected
	case model.ReasonGenerationFailed, model.ReasonGeneratorDeclined:
		return p.phrases.GenerationFailed
	default:
		// guard_rejected, internal_error and anything unrecognized
		return p.phrases.GuardRejected
	}
}

// Refuse builds a refusal response for c.
func (p RefusalPolicy) Refuse(c model.Context, reason model.RefusalReason, detail string) model.Response {
	status := model.StatusSuccess
	if reason == model.ReasonNoCityBound || reason == model.ReasonInternalError {
		status = model.StatusError
	}
	return model.Response{
		Text:                     string(p.Phrase(reason)),
		City:                     c.City,
		Status:                   status,
		RefusalReason:            reason,
		Detail:                   detail,
		SourceContextFingerprint: c.Fingerprint,
		IsRefusal:                true,
	}
}
