package evaluator

import "fmt"

// systemPrompt builds the scoring instruction for a language. The model
// tier is invariant to language; only the criteria text changes.
func (e *Evaluator) systemPrompt(language string) string {
	criteria := e.languages[language].Criteria

	return fmt.Sprintf(`You evaluate website fragments for job postings matching this profile:
%s

%s

Respond with a single JSON object and nothing else:
{"relevance_score": <integer 0-5>, "title": "<posting title or best guess>", "reason": "<one sentence>"}

Scoring scale:
0-1: clearly not a matching posting
2: weak signals only
3: plausible match missing key criteria
4-5: strong match for the profile`, e.roleProfile, criteria)
}

// userPrompt renders the candidate fragment for scoring.
func userPrompt(sourceURL, content string) string {
	return fmt.Sprintf("Source URL: %s\n\nFragment:\n%s", sourceURL, content)
}
