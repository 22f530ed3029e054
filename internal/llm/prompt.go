package llm

import (
	"fmt"
	"strings"
)

// generatorPrompt instructs the model to emit exactly one SQLite SELECT.
// The gate still vets every byte that comes back; the prompt just raises the
// odds the first answer passes.
const generatorPrompt = `You are a senior analytics engineer. Convert natural-language questions into a single, safe, dialect-correct SQLite SELECT query using only the provided schema and (when given) the prior Q&A history. Rules:
- Return only the SQL, no prose, no backticks.
- Use explicit table names and qualified columns when joins are involved.
- Prefer COUNT(*), SUM(), AVG(), ORDER BY ... LIMIT ...
- Do NOT invent tables/columns not in the schema.
- Absolutely NO data-modifying statements (INSERT/UPDATE/DELETE/ALTER/DROP/CREATE/ATTACH).
- One statement only.
- Follow-ups may refer to earlier answers; infer intent from the provided history.`

const explainerPrompt = `Explain query results briefly for a business user in one or two sentences.`

// userContent assembles the user message for SQL generation.
func userContent(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schema:\n%s\n\n", req.Schema)
	if req.History != "" {
		fmt.Fprintf(&b, "History (use for context if relevant):\n%s\n\n", req.History)
	}
	fmt.Fprintf(&b, "Question: %s\nSQL:", req.Question)
	return b.String()
}

// explainContent assembles the user message for result explanation.
func explainContent(req ExplainRequest) string {
	return fmt.Sprintf("Question: %s\nSQL: %s\nPreview rows: %s", req.Question, req.SQL, req.Preview)
}

// stripFences removes a surrounding markdown code fence the model may have
// added despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
