// Package llm talks to the chat-completions provider that turns questions
// into SQL and result previews into short explanations.
package llm

import (
	"context"
	"fmt"
)

// Request carries everything the generator needs for one question.
type Request struct {
	Question string
	Schema   string
	History  string // optional prior-turn context
}

// ExplainRequest carries the context for a result explanation.
type ExplainRequest struct {
	Question string
	SQL      string
	Preview  string // JSON preview of up to 5 result rows
}

// Client generates SQL from natural language and explains results.
// Implementations are expected to be safe for sequential reuse; the pipeline
// never calls them concurrently.
type Client interface {
	// GenerateSQL returns a single candidate SQL statement. The caller must
	// treat it as untrusted until vetted.
	GenerateSQL(ctx context.Context, req Request) (string, error)

	// Explain returns a one-or-two sentence explanation of a result.
	Explain(ctx context.Context, req ExplainRequest) (string, error)
}

// ProviderError reports a failed provider call: network trouble, auth or
// rate-limit rejection, timeout, or an unusable response body.
type ProviderError struct {
	Status  int // HTTP status, 0 when the request never completed
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("provider request failed: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("provider request failed (HTTP %d): %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("provider request failed: %s", e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }
