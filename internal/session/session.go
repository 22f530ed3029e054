// Package session orchestrates the ask pipeline: prompt the generator, vet
// the candidate SQL, execute it read-only, and remember the turn so
// follow-up questions carry context.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/askdb-io/askdb/internal/database"
	"github.com/askdb-io/askdb/internal/llm"
	"github.com/askdb-io/askdb/pkg/safety"
)

// previewRows caps how many rows are fed back to the explainer and the
// follow-up history context.
const previewRows = 5

// Config holds session behavior settings.
type Config struct {
	HistoryTurns int
	ExportDir    string
}

// Session runs questions through generate, vet, and execute. It holds the
// only database handle and LLM client for the process; both are passed in
// explicitly at construction.
type Session struct {
	db      *database.DB
	client  llm.Client
	log     *slog.Logger
	cfg     Config
	history *history
	schema  string // cached schema text for the prompt
}

// Answer is the outcome of one successfully executed question.
type Answer struct {
	ID          string
	Question    string
	SQL         string
	Result      *database.Result
	Explanation string
	Elapsed     time.Duration
	CreatedAt   time.Time
}

// New creates a session over an open database and provider client.
func New(db *database.DB, client llm.Client, logger *slog.Logger, cfg Config) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		db:      db,
		client:  client,
		log:     logger,
		cfg:     cfg,
		history: newHistory(cfg.HistoryTurns),
	}
}

// DB exposes the underlying database for introspection commands.
func (s *Session) DB() *database.DB {
	return s.db
}

// SchemaText returns the prompt-ready schema listing, introspected once and
// cached for the lifetime of the session.
func (s *Session) SchemaText(ctx context.Context) (string, error) {
	if s.schema != "" {
		return s.schema, nil
	}
	text, err := s.db.SchemaText(ctx)
	if err != nil {
		return "", err
	}
	s.schema = text
	return text, nil
}

// Generate asks the provider for candidate SQL. The returned text is
// untrusted; it must pass through Execute (which vets it) before reaching
// the database.
func (s *Session) Generate(ctx context.Context, question string) (string, error) {
	schema, err := s.SchemaText(ctx)
	if err != nil {
		return "", err
	}

	candidate, err := s.client.GenerateSQL(ctx, llm.Request{
		Question: question,
		Schema:   schema,
		History:  s.history.context(),
	})
	if err != nil {
		return "", err
	}

	s.log.Debug("generated candidate SQL", "question", question, "sql", candidate)
	return candidate, nil
}

// Execute vets candidate SQL and runs it. On success the turn is recorded
// in history. Rejection by the gate means the database is never touched.
func (s *Session) Execute(ctx context.Context, question, candidate string) (*Answer, error) {
	vetted, err := safety.Vet(candidate)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.db.Query(ctx, vetted)
	if err != nil {
		return nil, err
	}

	ans := &Answer{
		ID:        uuid.NewString(),
		Question:  question,
		SQL:       vetted,
		Result:    result,
		Elapsed:   time.Since(start),
		CreatedAt: time.Now(),
	}

	s.history.add(turn{
		question: question,
		sql:      vetted,
		preview:  result.Preview(3),
	})

	return ans, nil
}

// Explain asks the provider to summarize the answer for a business user and
// stores the explanation on the answer. Callers treat failure as non-fatal:
// the tabulated result has already been produced.
func (s *Session) Explain(ctx context.Context, ans *Answer) (string, error) {
	preview, err := json.Marshal(ans.Result.Preview(previewRows))
	if err != nil {
		return "", err
	}

	text, err := s.client.Explain(ctx, llm.ExplainRequest{
		Question: ans.Question,
		SQL:      ans.SQL,
		Preview:  string(preview),
	})
	if err != nil {
		return "", err
	}

	ans.Explanation = text
	return text, nil
}

// Ask runs the full pipeline for one question. Explanation failures are
// logged and swallowed; every other failure aborts the run.
func (s *Session) Ask(ctx context.Context, question string) (*Answer, error) {
	candidate, err := s.Generate(ctx, question)
	if err != nil {
		return nil, err
	}

	ans, err := s.Execute(ctx, question, candidate)
	if err != nil {
		return nil, err
	}

	if _, err := s.Explain(ctx, ans); err != nil {
		s.log.Warn("explanation unavailable", "error", err)
	}

	return ans, nil
}

// History returns a copy of the recorded turns, newest last.
func (s *Session) History() []Turn {
	return s.history.list()
}

// ClearHistory forgets all recorded turns.
func (s *Session) ClearHistory() {
	s.history.clear()
}
