package models

// Verdict is the Evaluator's final classification of a candidate.
type Verdict string

const (
	VerdictRelevant   Verdict = "relevant"
	VerdictIrrelevant Verdict = "irrelevant"
	VerdictUncertain  Verdict = "uncertain"

	// VerdictUnevaluated marks candidates whose scoring failed after
	// exhausted model retries. They never count as relevant.
	VerdictUnevaluated Verdict = "unevaluated"
)

// VerdictFor maps a relevance score onto a verdict given the configured
// thresholds. Scores at or above relevant are relevant, at or below
// irrelevant are irrelevant, anything between is uncertain.
func VerdictFor(score, relevant, irrelevant float64) Verdict {
	switch {
	case score >= relevant:
		return VerdictRelevant
	case score <= irrelevant:
		return VerdictIrrelevant
	default:
		return VerdictUncertain
	}
}

// JobCandidate is a scored posting candidate. Terminal once scored;
// appended to the session's result set.
type JobCandidate struct {
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	SourceURL string `json:"source_url"`

	// Language is the detected language code ("de", "en", ...).
	Language string `json:"language"`

	// Score is the relevance score in [0,1].
	Score float64 `json:"score"`

	Verdict Verdict `json:"verdict"`

	// Tier names the model tier that produced the score.
	Tier string `json:"tier,omitempty"`
}
