package config

import (
	"fmt"
	"os"
)

// ValidationError reports a configuration problem detected before any
// network or database access.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validate checks that the configuration can support a run. It is called
// before anything touches the network or the database, so credential and
// path problems surface immediately with a clear message.
func (c *Config) Validate() error {
	switch c.APIKey {
	case "":
		return &ValidationError{
			Field: "api_key",
			Msg:   "OPENAI_API_KEY is not set\nHint: export OPENAI_API_KEY or add api_key to askdb.yaml",
		}
	case PlaceholderAPIKey:
		return &ValidationError{
			Field: "api_key",
			Msg:   fmt.Sprintf("OPENAI_API_KEY is still the placeholder %q\nHint: replace it with your real API key", PlaceholderAPIKey),
		}
	}

	if c.Database == "" {
		return &ValidationError{
			Field: "database",
			Msg:   "no database configured\nHint: use --database or set database in askdb.yaml",
		}
	}
	if _, err := os.Stat(c.Database); err != nil {
		return &ValidationError{
			Field: "database",
			Msg:   fmt.Sprintf("database file does not exist: %s", c.Database),
		}
	}

	return nil
}
