package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Package-level koanf instance and config file tracking.
var (
	k              = koanf.New(".")
	configFileUsed string
)

// findConfigFile finds the config file to use.
// Priority: explicit path > askdb.yaml > askdb.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"askdb.yaml", "askdb.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Reset resets the koanf instance. Used for testing.
func Reset() {
	k = koanf.New(".")
	configFileUsed = ""
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > ASKDB_* env vars > OPENAI_* env
// vars > config file > defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for a fresh load
	k = koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"model":         DefaultModel,
		"base_url":      DefaultBaseURL,
		"timeout":       DefaultTimeoutSecs,
		"history_turns": DefaultHistoryTurns,
		"exports.dir":   DefaultExportDir,
		"verbose":       false,
		"output":        DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Conventional OpenAI environment variables
	openaiEnv := map[string]interface{}{}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		openaiEnv["api_key"] = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		openaiEnv["model"] = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		openaiEnv["base_url"] = v
	}
	if len(openaiEnv) > 0 {
		if err := k.Load(confmap.Provider(openaiEnv, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load OpenAI env vars: %w", err)
		}
	}

	// 4. ASKDB_-prefixed environment variables
	// Transform: ASKDB_HISTORY_TURNS -> history_turns
	if err := k.Load(env.Provider("ASKDB_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "ASKDB_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "export_dir" {
				return "exports.dir", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}
