package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/askdb-io/askdb/internal/cli/config"
	"github.com/askdb-io/askdb/internal/database"
	"github.com/askdb-io/askdb/internal/llm"
	"github.com/askdb-io/askdb/internal/session"
)

// CommandContext bundles what commands need from the root command: the
// loaded config and the logger.
type CommandContext struct {
	Cfg *config.Config
	Log *slog.Logger
}

// NewCommandContext extracts config and logger from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	return &CommandContext{
		Cfg: config.FromContext(ctx),
		Log: config.GetLogger(ctx),
	}
}

// newSession validates the config, opens the database read-only, and builds
// the pipeline session. The returned cleanup closes the database.
func newSession(cmd *cobra.Command) (*session.Session, func(), error) {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	client := llm.NewOpenAI(cfg.APIKey, cfg.Model,
		llm.WithBaseURL(cfg.BaseURL),
		llm.WithTimeout(cfg.Timeout()),
	)

	sess := session.New(db, client, cmdCtx.Log, session.Config{
		HistoryTurns: cfg.HistoryTurns,
		ExportDir:    cfg.ExportDir(),
	})

	cleanup := func() { _ = db.Close() }
	return sess, cleanup, nil
}

// openDatabase validates only the database half of the config and opens it.
// Used by introspection commands that never talk to the provider.
func openDatabase(cmd *cobra.Command) (*database.DB, func(), error) {
	cfg := NewCommandContext(cmd).Cfg
	if cfg.Database == "" {
		return nil, nil, &config.ValidationError{
			Field: "database",
			Msg:   "no database configured\nHint: use --database or set database in askdb.yaml",
		}
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
