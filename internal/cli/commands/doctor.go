package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/askdb-io/askdb/internal/cli/config"
	"github.com/askdb-io/askdb/internal/database"
	"github.com/askdb-io/askdb/internal/llm"
)

type checkStatus string

const (
	statusPass checkStatus = "pass"
	statusWarn checkStatus = "warn"
	statusFail checkStatus = "fail"
)

type checkResult struct {
	Name   string      `json:"name"`
	Status checkStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	var (
		format  string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, database, and provider connectivity",
		Long: `Run a series of checks against the current configuration: the database
file, the API key, and the provider endpoint. Exits non-zero if any
check fails.`,
		Example: `  askdb doctor
  askdb doctor --offline --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, format, offline)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip checks that reach the provider over the network")

	return cmd
}

func runDoctor(cmd *cobra.Command, format string, offline bool) error {
	cc := NewCommandContext(cmd)
	results := runChecks(cmd.Context(), cc.Cfg, offline)

	failed := false
	for _, r := range results {
		if r.Status == statusFail {
			failed = true
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			marker := passStyle.Render("ok")
			switch r.Status {
			case statusWarn:
				marker = warnStyle.Render("warn")
			case statusFail:
				marker = failStyle.Render("FAIL")
			}
			_, _ = fmt.Fprintf(out, "[%s] %s", marker, r.Name)
			if r.Detail != "" {
				_, _ = fmt.Fprintf(out, ": %s", r.Detail)
			}
			_, _ = fmt.Fprintln(out)
		}
	}

	if failed {
		return errors.New("one or more checks failed")
	}
	return nil
}

func runChecks(ctx context.Context, cfg *config.Config, offline bool) []checkResult {
	var results []checkResult

	// Database checks do not need an API key.
	dbCheck := checkResult{Name: "database", Status: statusPass, Detail: cfg.Database}
	var db *database.DB
	if cfg.Database == "" {
		dbCheck.Status = statusFail
		dbCheck.Detail = "no database configured"
	} else {
		var err error
		db, err = database.Open(cfg.Database)
		if err != nil {
			dbCheck.Status = statusFail
			dbCheck.Detail = err.Error()
		}
	}
	results = append(results, dbCheck)

	if db != nil {
		defer func() { _ = db.Close() }()

		queryCheck := checkResult{Name: "query", Status: statusPass}
		tablesCheck := checkResult{Name: "tables", Status: statusPass}

		if _, err := db.Query(ctx, "SELECT 1"); err != nil {
			queryCheck.Status = statusFail
			queryCheck.Detail = err.Error()
		}
		results = append(results, queryCheck)

		names, err := db.Tables(ctx)
		switch {
		case err != nil:
			tablesCheck.Status = statusFail
			tablesCheck.Detail = err.Error()
		case len(names) == 0:
			tablesCheck.Status = statusWarn
			tablesCheck.Detail = "database contains no tables"
		default:
			tablesCheck.Detail = fmt.Sprintf("%d tables", len(names))
		}
		results = append(results, tablesCheck)
	}

	keyCheck := checkResult{Name: "api key", Status: statusPass}
	switch cfg.APIKey {
	case "":
		keyCheck.Status = statusFail
		keyCheck.Detail = "not set (set OPENAI_API_KEY or api_key in askdb.yaml)"
	case config.PlaceholderAPIKey:
		keyCheck.Status = statusFail
		keyCheck.Detail = "placeholder value, replace it with a real key"
	}
	results = append(results, keyCheck)

	providerCheck := checkResult{Name: "provider", Status: statusPass, Detail: cfg.BaseURL}
	switch {
	case offline:
		providerCheck.Status = statusWarn
		providerCheck.Detail = "skipped (--offline)"
	case keyCheck.Status != statusPass:
		providerCheck.Status = statusWarn
		providerCheck.Detail = "skipped, no usable API key"
	default:
		client := llm.NewOpenAI(cfg.APIKey, cfg.Model,
			llm.WithBaseURL(cfg.BaseURL),
			llm.WithTimeout(10*time.Second),
		)
		if err := client.Ping(ctx); err != nil {
			providerCheck.Status = statusFail
			providerCheck.Detail = err.Error()
		}
	}
	results = append(results, providerCheck)

	return results
}
