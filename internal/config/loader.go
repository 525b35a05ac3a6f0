package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable
// values. Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// Load reads the config file and merges it over defaults. A missing
// file yields defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Persistence.Dir = expandEnvVars(cfg.Persistence.Dir)
	cfg.Reasoning.Path = expandEnvVars(cfg.Reasoning.Path)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets the environment pre-resolve an identity
// without touching the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HIVEMIND_AGENT_ID"); v != "" {
		cfg.Identity.PreResolvedAgentID = v
	}
	if v := os.Getenv("HIVEMIND_AGENT_NAME"); v != "" {
		cfg.Identity.PreResolvedAgentName = v
	}
	if v := os.Getenv("HIVEMIND_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validBackends := []string{"", "memory", "fs"}
	if !slices.Contains(validBackends, cfg.Persistence.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "persistence.backend",
			Message: fmt.Sprintf("must be memory or fs, got %q", cfg.Persistence.Backend),
		})
	}

	validStores := []string{"", "memory", "sqlite"}
	if !slices.Contains(validStores, cfg.Reasoning.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "reasoning.store",
			Message: fmt.Sprintf("must be memory or sqlite, got %q", cfg.Reasoning.Store),
		})
	}

	validLogLevels := []string{"", "silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of silent|fatal|error|warn|info|debug|trace, got %q", cfg.Logging.Level),
		})
	}

	return issues
}
