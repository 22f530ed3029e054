package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-io/askdb/internal/database"
	"github.com/askdb-io/askdb/internal/llm"
	"github.com/askdb-io/askdb/internal/testutil"
	"github.com/askdb-io/askdb/pkg/safety"
)

// fakeClient is a canned llm.Client that records every call.
type fakeClient struct {
	sql         string
	sqlErr      error
	explanation string
	explainErr  error

	generateCalls []llm.Request
	explainCalls  []llm.ExplainRequest
}

func (f *fakeClient) GenerateSQL(_ context.Context, req llm.Request) (string, error) {
	f.generateCalls = append(f.generateCalls, req)
	return f.sql, f.sqlErr
}

func (f *fakeClient) Explain(_ context.Context, req llm.ExplainRequest) (string, error) {
	f.explainCalls = append(f.explainCalls, req)
	return f.explanation, f.explainErr
}

func newTestSession(t *testing.T, client llm.Client, cfg Config) *Session {
	t.Helper()
	db, err := database.Open(testutil.CreateSampleDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, client, testutil.NewTestLogger(t), cfg)
}

func TestSession_Ask_TopCountriesByRevenue(t *testing.T) {
	fake := &fakeClient{
		sql: `SELECT BillingCountry, SUM(Total) AS revenue
FROM Invoice
GROUP BY BillingCountry
ORDER BY revenue DESC
LIMIT 5;`,
		explanation: "Norway leads on revenue, followed by USA and Brazil.",
	}
	sess := newTestSession(t, fake, Config{})

	ans, err := sess.Ask(context.Background(), "Top 5 countries by revenue")
	require.NoError(t, err)

	assert.NotEmpty(t, ans.ID)
	assert.Equal(t, 5, ans.Result.RowCount())
	assert.Equal(t, []string{"BillingCountry", "revenue"}, ans.Result.Columns)
	assert.Equal(t, "Norway", ans.Result.Rows[0][0])
	assert.Equal(t, "Norway leads on revenue, followed by USA and Brazil.", ans.Explanation)

	// the vetted SQL has the trailing separator stripped
	assert.NotContains(t, ans.SQL, ";")

	// generator saw the introspected schema
	require.Len(t, fake.generateCalls, 1)
	assert.Contains(t, fake.generateCalls[0].Schema, "- Invoice(")

	// explainer saw a preview of the result
	require.Len(t, fake.explainCalls, 1)
	assert.Contains(t, fake.explainCalls[0].Preview, "Norway")
}

func TestSession_Ask_RejectsDelete(t *testing.T) {
	fake := &fakeClient{sql: "DELETE FROM Invoice"}
	sess := newTestSession(t, fake, Config{})
	ctx := context.Background()

	_, err := sess.Ask(ctx, "remove all invoices")
	require.Error(t, err)

	var unsafe *safety.UnsafeError
	require.True(t, errors.As(err, &unsafe))
	assert.Equal(t, "DELETE FROM Invoice", unsafe.SQL)

	// the executor was never reached and the turn is not recorded
	assert.Empty(t, fake.explainCalls)
	assert.Empty(t, sess.History())

	res, err := sess.DB().Query(ctx, "SELECT COUNT(*) FROM Invoice")
	require.NoError(t, err)
	assert.EqualValues(t, 8, res.Rows[0][0])
}

func TestSession_Ask_RejectsStackedStatements(t *testing.T) {
	fake := &fakeClient{sql: "SELECT * FROM Track; DROP TABLE Track;"}
	sess := newTestSession(t, fake, Config{})

	_, err := sess.Ask(context.Background(), "list tracks")
	require.Error(t, err)

	var unsafe *safety.UnsafeError
	require.True(t, errors.As(err, &unsafe))
	assert.Empty(t, fake.explainCalls)
}

func TestSession_Ask_ExplainFailureIsNonFatal(t *testing.T) {
	fake := &fakeClient{
		sql:        "SELECT COUNT(*) AS tracks FROM Track",
		explainErr: &llm.ProviderError{Message: "rate limited"},
	}
	sess := newTestSession(t, fake, Config{})

	ans, err := sess.Ask(context.Background(), "how many tracks?")
	require.NoError(t, err)
	assert.Equal(t, 1, ans.Result.RowCount())
	assert.Empty(t, ans.Explanation)
}

func TestSession_Ask_QueryErrorSurfaced(t *testing.T) {
	fake := &fakeClient{sql: "SELECT nonexistent FROM Invoice"}
	sess := newTestSession(t, fake, Config{})

	_, err := sess.Ask(context.Background(), "broken")
	require.Error(t, err)

	var qerr *database.QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Empty(t, sess.History())
}

func TestSession_ProviderErrorSurfaced(t *testing.T) {
	fake := &fakeClient{sqlErr: &llm.ProviderError{Message: "boom"}}
	sess := newTestSession(t, fake, Config{})

	_, err := sess.Ask(context.Background(), "anything")
	require.Error(t, err)

	var perr *llm.ProviderError
	assert.True(t, errors.As(err, &perr))
}

func TestSession_HistoryFeedsFollowUps(t *testing.T) {
	fake := &fakeClient{sql: "SELECT Name FROM Artist ORDER BY ArtistId LIMIT 2"}
	sess := newTestSession(t, fake, Config{HistoryTurns: 2})
	ctx := context.Background()

	_, err := sess.Ask(ctx, "first two artists")
	require.NoError(t, err)
	_, err = sess.Ask(ctx, "and their albums?")
	require.NoError(t, err)

	// the first call had no history; the second carried the first turn
	assert.Empty(t, fake.generateCalls[0].History)
	assert.Contains(t, fake.generateCalls[1].History, "Turn 1:")
	assert.Contains(t, fake.generateCalls[1].History, "first two artists")
	assert.Contains(t, fake.generateCalls[1].History, "AC/DC")

	require.Len(t, sess.History(), 2)

	sess.ClearHistory()
	assert.Empty(t, sess.History())
}

func TestHistory_CapsTurns(t *testing.T) {
	h := newHistory(2)
	h.add(turn{question: "one"})
	h.add(turn{question: "two"})
	h.add(turn{question: "three"})

	turns := h.list()
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Question)
	assert.Equal(t, "three", turns[1].Question)
}

func TestSession_Export(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	fake := &fakeClient{sql: "SELECT Name FROM Artist ORDER BY ArtistId"}
	sess := newTestSession(t, fake, Config{ExportDir: dir})

	ans, err := sess.Ask(context.Background(), "All artists, alphabetically!")
	require.NoError(t, err)
	ans.CreatedAt = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	paths, err := sess.Export(ans)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	sqlBody, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "SELECT Name FROM Artist ORDER BY ArtistId\n", string(sqlBody))

	mdBody, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	md := string(mdBody)
	assert.Contains(t, md, "---\n")
	assert.Contains(t, md, "question: All artists, alphabetically!")
	assert.Contains(t, md, "rows: 3")
	assert.Contains(t, md, "# Query: All artists, alphabetically!")
	assert.Contains(t, md, "```sql")
	assert.Contains(t, md, "| Name |")
	assert.Contains(t, md, "| AC/DC |")

	assert.Contains(t, filepath.Base(paths[0]), "20240301_123000_all-artists-alphabetically")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Top 5 countries by revenue", "top-5-countries-by-revenue"},
		{"  What's up?!  ", "what-s-up"},
		{"", "query"},
		{"???", "query"},
		{"a very long question that keeps going and going and going", "a-very-long-question-that-keeps-going-an"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
}
