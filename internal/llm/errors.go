package llm

import "errors"

// ErrModelUnavailable indicates the inference backend kept failing
// after all retries. Callers mark the affected candidate unevaluated
// instead of aborting the session.
var ErrModelUnavailable = errors.New("model unavailable after retries")
