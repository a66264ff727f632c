// Package scope decides whether a query falls inside the supported topic
// taxonomy before any generation happens.
package scope

import "github.com/Veraticus/local-guide/internal/model"

// Verdict is the outcome of classifying one query.
type Verdict struct {
	Classification model.Classification
	Reason         model.ScopeReason
	Topic          model.Topic
	Normalized     string
	Topics         []model.Topic
}

// Accepted reports whether the query is in scope.
func (v Verdict) Accepted() bool {
	return v.Classification == model.ClassificationAccepted
}

// Classifier is a deterministic scope classifier. Implementations must be
// pure functions of the query text and safe for concurrent use.
type Classifier interface {
	Classify(text string) Verdict
}

func accept(normalized string, topics []model.Topic) Verdict {
	v := Verdict{
		Classification: model.ClassificationAccepted,
		Normalized:     normalized,
		Topics:         topics,
	}
	if len(topics) > 0 {
		v.Topic = topics[0]
	}
	return v
}

func reject(normalized string, reason model.ScopeReason) Verdict {
	return Verdict{
		Classification: model.ClassificationRejected,
		Reason:         reason,
		Normalized:     normalized,
	}
}
