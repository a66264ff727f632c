package model

import "time"

// Classification is the scope classifier's verdict on a query.
type Classification string

// Classification values.
const (
	ClassificationAccepted Classification = "ACCEPTED"
	ClassificationRejected Classification = "REJECTED"
)

// Topic is one category of the supported topic taxonomy.
type Topic string

// Supported topics.
const (
	TopicFood          Topic = "food"
	TopicTransport     Topic = "transport"
	TopicLocalLanguage Topic = "local_language"
	TopicSafety        Topic = "safety"
	TopicLifestyle     Topic = "lifestyle"
)

// Topics returns the closed topic taxonomy in a stable order.
func Topics() []Topic {
	return []Topic{TopicFood, TopicTransport, TopicLocalLanguage, TopicSafety, TopicLifestyle}
}

// ScopeReason explains a REJECTED classification.
type ScopeReason string

// Scope rejection reasons.
const (
	ScopeReasonNone             ScopeReason = ""
	ScopeReasonEmptyQuery       ScopeReason = "empty_query"
	ScopeReasonQueryTooLong     ScopeReason = "query_too_long"
	ScopeReasonNoLetters        ScopeReason = "no_letters"
	ScopeReasonOutsideCoverage  ScopeReason = "outside_coverage"
	ScopeReasonUnsupportedTopic ScopeReason = "unsupported_topic"
)

// Query is a single user submission. It is not modified after the
// classification has been recorded.
type Query struct {
	SubmittedAt          time.Time
	Text                 string
	City                 City
	Classification       Classification
	ClassificationReason ScopeReason
	Topic                Topic
}

// Accepted reports whether the query passed scope classification.
func (q Query) Accepted() bool {
	return q.Classification == ClassificationAccepted
}

// Candidate is the generator's raw output together with the Context it was
// generated against. It only lives for the duration of guard evaluation.
type Candidate struct {
	Context Context
	Text    string
	Model   string
}
