package domain

// AnswerOutcome classifies how a question cycle ended.
type AnswerOutcome string

// Available answer outcomes.
const (
	// AnswerOutcomeAnswered means a grounded answer was generated.
	AnswerOutcomeAnswered AnswerOutcome = "answered"

	// AnswerOutcomeRewriteFailed means no usable search query was produced.
	AnswerOutcomeRewriteFailed AnswerOutcome = "rewrite_failed"

	// AnswerOutcomeNoMatches means retrieval found nothing relevant.
	AnswerOutcomeNoMatches AnswerOutcome = "no_matches"

	// AnswerOutcomeDegraded means a provider failed after retries.
	AnswerOutcomeDegraded AnswerOutcome = "degraded"

	// AnswerOutcomeFailed means a structural, non-retryable failure.
	AnswerOutcomeFailed AnswerOutcome = "failed"
)

// String returns the string representation.
func (o AnswerOutcome) String() string {
	return string(o)
}

// Answer is the result of one question cycle.
// Text is always a human-readable string, whatever the outcome.
type Answer struct {
	// Text is the answer shown to the user.
	Text string

	// Outcome classifies the result.
	Outcome AnswerOutcome

	// SearchQuery is the standalone query used for retrieval, if any.
	SearchQuery string

	// Matches are the retrieved passages, in descending score order.
	Matches []RetrievalMatch
}
