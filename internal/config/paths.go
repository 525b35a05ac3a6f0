package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".hivemind"

// Paths holds resolved filesystem paths for hivemind data.
type Paths struct {
	Base   string // ~/.hivemind
	Config string // ~/.hivemind/config.yaml
	State  string // ~/.hivemind/state
	Chains string // ~/.hivemind/chains.db
	Logs   string // ~/.hivemind/logs
}

// ResolvePaths computes all standard paths from the home directory.
// HIVEMIND_HOME overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("HIVEMIND_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		State:  filepath.Join(base, "state"),
		Chains: filepath.Join(base, "chains.db"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates the standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.State, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
