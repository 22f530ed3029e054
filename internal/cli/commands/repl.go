package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/askdb-io/askdb/internal/session"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive question-and-answer session",
		Long: `Start an interactive session against the configured database.

Each line is a natural-language question; follow-ups may refer to earlier
answers. Dot-commands inspect the schema and session state.`,
		Example: `  askdb repl
  askdb repl --format md --no-explain`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunREPL(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().BoolVar(&opts.NoExplain, "no-explain", false, "Skip the explanation step")

	return cmd
}

// RunREPL drives the interactive loop. Exposed so the root command can fall
// into it when invoked with no arguments on a terminal.
func RunREPL(cmd *cobra.Command, opts *AskOptions) error {
	sess, cleanup, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if !cmd.Flags().Changed("format") {
		if o := NewCommandContext(cmd).Cfg.Output; o != "" {
			opts.Format = o
		}
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "askdb> ",
		HistoryFile:     replHistoryFile(),
		AutoComplete:    newREPLCompleter(ctx, sess),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(out, "askdb (database: %s)\n", sess.DB().Path())
	_, _ = fmt.Fprintln(out, "Ask questions in plain English. Type .help for commands, .quit to exit.")
	_, _ = fmt.Fprintln(out)

	var lastAnswer *session.Answer
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cmd, sess, lastAnswer, line); quit {
				break
			}
			continue
		}

		ans, err := askOnce(ctx, cmd, rl, sess, line, opts)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if ans != nil {
			lastAnswer = ans
		}
		_, _ = fmt.Fprintln(out)
	}

	return nil
}

// askOnce runs one question through the pipeline with a confirmation step.
// A nil answer with nil error means the user declined to run the SQL.
func askOnce(ctx context.Context, cmd *cobra.Command, rl *readline.Instance, sess *session.Session, question string, opts *AskOptions) (*session.Answer, error) {
	out := cmd.OutOrStdout()

	candidate, err := sess.Generate(ctx, question)
	if err != nil {
		return nil, err
	}

	_, _ = fmt.Fprintln(out, "\n--- Generated SQL ---")
	_, _ = fmt.Fprintln(out, candidate)

	rl.SetPrompt("Run this query? [Y/n]: ")
	answer, err := rl.Readline()
	rl.SetPrompt("askdb> ")
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "" && !strings.HasPrefix(answer, "y") {
		_, _ = fmt.Fprintln(out, "Canceled.")
		return nil, nil
	}

	ans, err := sess.Execute(ctx, question, candidate)
	if err != nil {
		return nil, err
	}

	_, _ = fmt.Fprintln(out, "\n--- Results ---")
	if err := renderResult(out, ans.Result, opts.Format); err != nil {
		return ans, err
	}

	if !opts.NoExplain {
		if expl, err := sess.Explain(ctx, ans); err != nil {
			NewCommandContext(cmd).Log.Warn("explanation unavailable", "error", err)
		} else if expl != "" {
			_, _ = fmt.Fprintln(out, "\n--- Explanation ---")
			_, _ = fmt.Fprintln(out, expl)
		}
	}

	return ans, nil
}

// handleDotCommand executes a dot-command; returns true when the REPL
// should exit.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, sess *session.Session, lastAnswer *session.Answer, line string) bool {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(out)

	case ".tables":
		if err := printTables(ctx, out, sess); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".schema":
		if len(parts) > 1 {
			if err := printTableSchema(ctx, out, sess.DB(), parts[1]); err != nil {
				_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			}
			break
		}
		text, err := sess.SchemaText(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		for _, l := range strings.Split(text, "\n") {
			_, _ = fmt.Fprintf(out, "  %s\n", l)
		}

	case ".history":
		turns := sess.History()
		if len(turns) == 0 {
			_, _ = fmt.Fprintln(out, "(no history)")
			break
		}
		for i, t := range turns {
			_, _ = fmt.Fprintf(out, "%d. Q: %s\n   SQL: %s\n", i+1, t.Question, t.SQL)
		}

	case ".clear":
		sess.ClearHistory()
		_, _ = fmt.Fprintln(out, "History cleared.")

	case ".export":
		if lastAnswer == nil {
			_, _ = fmt.Fprintln(errOut, "Nothing to export yet.")
			break
		}
		paths, err := sess.Export(lastAnswer)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		_, _ = fmt.Fprintf(out, "Saved: %s\n", strings.Join(paths, ", "))

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}

	return false
}

func printTables(ctx context.Context, w io.Writer, sess *session.Session) error {
	names, err := sess.DB().Tables(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %s\n", name)
	}
	return nil
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List tables
  .schema [name]  Show the schema, or one table's columns
  .history        Show this session's questions and SQL
  .clear          Clear the follow-up history
  .export         Save the last answer to the export directory
  .quit / .exit   Exit

Tips:
  - Questions are plain English; follow-ups can refer to earlier answers
  - Generated SQL is shown and confirmed before it runs
  - Only read-only SELECT statements are ever executed
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter completes dot-commands and table names.
func newREPLCompleter(ctx context.Context, sess *session.Session) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	if names, err := sess.DB().Tables(ctx); err == nil {
		tableItems := make([]readline.PrefixCompleterInterface, 0, len(names))
		for _, name := range names {
			tableItems = append(tableItems, readline.PcItem(name))
		}
		items = append(items, readline.PcItem(".schema", tableItems...))
	} else {
		items = append(items, readline.PcItem(".schema"))
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".history"),
		readline.PcItem(".clear"),
		readline.PcItem(".export"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}

// replHistoryFile places readline history in the user's home directory,
// falling back to the working directory.
func replHistoryFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".askdb_history")
	}
	return ".askdb_history"
}
