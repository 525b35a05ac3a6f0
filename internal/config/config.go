// Package config loads and validates the hivemind configuration file.
package config

// Config is the root configuration for hivemind.
type Config struct {
	Identity    IdentityConfig    `yaml:"identity,omitempty"`
	Persistence PersistenceConfig `yaml:"persistence,omitempty"`
	Reasoning   ReasoningConfig   `yaml:"reasoning,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
}

// IdentityConfig optionally pre-resolves the caller's identity so the
// register step can be skipped.
type IdentityConfig struct {
	PreResolvedAgentID   string `yaml:"preResolvedAgentId,omitempty"`
	PreResolvedAgentName string `yaml:"preResolvedAgentName,omitempty"`
}

// PersistenceConfig selects the coordination-state backend.
type PersistenceConfig struct {
	Backend string `yaml:"backend,omitempty"` // "memory" | "fs"
	Dir     string `yaml:"dir,omitempty"`     // state dir for "fs" (default <base>/state)
}

// ReasoningConfig selects the reasoning-chain backend.
type ReasoningConfig struct {
	Store string `yaml:"store,omitempty"` // "memory" | "sqlite"
	Path  string `yaml:"path,omitempty"`  // db path for "sqlite" (default <base>/chains.db)
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Persistence: PersistenceConfig{Backend: "memory"},
		Reasoning:   ReasoningConfig{Store: "memory"},
		Logging:     LoggingConfig{Level: "info"},
	}
}
