package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AskOptions holds options for the ask command.
type AskOptions struct {
	Format     string
	NoExplain  bool
	Export     bool
	Yes        bool
	ShowSchema bool
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the database a question in plain English",
		Long: `Ask converts a natural-language question into a single SQLite SELECT,
runs it against the configured database, and prints the tabulated result
with a short explanation.

The generated SQL is shown before it runs and must pass the read-only
safety gate; anything that is not a single SELECT statement is blocked.`,
		Example: `  # One-shot question
  askdb ask "Top 5 countries by revenue"

  # From a pipe, without confirmation, as JSON
  echo "Which albums have the most tracks?" | askdb ask --yes --format json

  # Save the run under outputs/
  askdb ask --export "Total revenue by year"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().BoolVar(&opts.NoExplain, "no-explain", false, "Skip the explanation step")
	cmd.Flags().BoolVar(&opts.Export, "export", false, "Save the run to the export directory")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Run the generated SQL without confirmation")
	cmd.Flags().BoolVar(&opts.ShowSchema, "show-schema", false, "Print the database schema before asking")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string, opts *AskOptions) error {
	question, err := readQuestion(cmd, args)
	if err != nil {
		return err
	}

	sess, cleanup, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// The output config key supplies the format unless the flag was set.
	if !cmd.Flags().Changed("format") {
		if o := NewCommandContext(cmd).Cfg.Output; o != "" {
			opts.Format = o
		}
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if opts.ShowSchema {
		schema, err := sess.SchemaText(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Schema:")
		for _, line := range strings.Split(schema, "\n") {
			_, _ = fmt.Fprintf(out, "  %s\n", line)
		}
		_, _ = fmt.Fprintln(out)
	}

	candidate, err := sess.Generate(ctx, question)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, "--- Generated SQL ---")
	_, _ = fmt.Fprintln(out, candidate)

	if !opts.Yes && isTerminal(os.Stdin) {
		ok, err := confirm(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(out, "Canceled.")
			return nil
		}
	}

	ans, err := sess.Execute(ctx, question, candidate)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, "\n--- Results ---")
	if err := renderResult(out, ans.Result, opts.Format); err != nil {
		return err
	}

	if !opts.NoExplain {
		cmdCtx := NewCommandContext(cmd)
		if expl, err := sess.Explain(ctx, ans); err != nil {
			cmdCtx.Log.Warn("explanation unavailable", "error", err)
		} else if expl != "" {
			_, _ = fmt.Fprintln(out, "\n--- Explanation ---")
			_, _ = fmt.Fprintln(out, expl)
		}
	}

	cfg := NewCommandContext(cmd).Cfg
	if opts.Export || cfg.Exports.Enabled {
		paths, err := sess.Export(ans)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: export failed: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(out, "\nSaved: %s\n", strings.Join(paths, ", "))
		}
	}

	return nil
}

// readQuestion takes the question from args or, when piped, from stdin.
func readQuestion(cmd *cobra.Command, args []string) (string, error) {
	var question string
	switch {
	case len(args) > 0:
		question = strings.Join(args, " ")
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		question = string(content)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("no question provided")
	}
	return question, nil
}

// confirm asks before running the generated SQL. Empty input or anything
// starting with y/Y means yes.
func confirm(in io.Reader, out io.Writer) (bool, error) {
	_, _ = fmt.Fprint(out, "\nRun this query? [Y/n]: ")

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	line = strings.ToLower(strings.TrimSpace(line))
	return line == "" || strings.HasPrefix(line, "y"), nil
}
