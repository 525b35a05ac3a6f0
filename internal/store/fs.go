package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/logging"
)

// FS is a filesystem-backed store. Reads are served from an in-memory
// cache loaded at open time; every save writes the entity's JSON
// document via a temp file and rename so a crash mid-write can never
// leave a structurally invalid document. A fresh FS over the same
// directory reconstructs identical state.
//
// Layout:
//
//	<dir>/agents.json
//	<dir>/workspaces/<id>/workspace.json
//	<dir>/workspaces/<id>/problems/<id>.json
//	<dir>/workspaces/<id>/proposals/<id>.json
//	<dir>/workspaces/<id>/consensus/<id>.json
//	<dir>/workspaces/<id>/channels/<problemId>.json
type FS struct {
	*Memory
	dir string
	log *logging.Logger
}

// OpenFS opens (or creates) a filesystem store rooted at dir and loads
// all existing documents into memory.
func OpenFS(dir string, log *logging.Logger) (*FS, error) {
	if err := os.MkdirAll(filepath.Join(dir, "workspaces"), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	fs := &FS{Memory: NewMemory(), dir: dir, log: log.Sub("store")}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Dir returns the store's root directory.
func (f *FS) Dir() string { return f.dir }

func (f *FS) load() error {
	var agents []domain.Agent
	if err := readJSON(filepath.Join(f.dir, "agents.json"), &agents); err != nil {
		return err
	}
	for _, a := range agents {
		if err := f.Memory.SaveAgent(a); err != nil {
			return err
		}
	}

	wsRoot := filepath.Join(f.dir, "workspaces")
	dirs, err := os.ReadDir(wsRoot)
	if err != nil {
		return fmt.Errorf("reading workspaces dir: %w", err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if err := f.loadWorkspace(filepath.Join(wsRoot, d.Name())); err != nil {
			return err
		}
	}

	f.log.Info().Str("dir", f.dir).Int("agents", len(agents)).Int("workspaces", len(dirs)).Msg("state loaded")
	return nil
}

func (f *FS) loadWorkspace(wsDir string) error {
	var ws domain.Workspace
	if err := readJSON(filepath.Join(wsDir, "workspace.json"), &ws); err != nil {
		return err
	}
	if ws.ID == "" {
		// Directory without a workspace document: ignore.
		return nil
	}
	if err := f.Memory.SaveWorkspace(ws); err != nil {
		return err
	}

	if err := loadDir(filepath.Join(wsDir, "problems"), func(p domain.Problem) error {
		return f.Memory.SaveProblem(p)
	}); err != nil {
		return err
	}
	if err := loadDir(filepath.Join(wsDir, "proposals"), func(p domain.Proposal) error {
		return f.Memory.SaveProposal(p)
	}); err != nil {
		return err
	}
	if err := loadDir(filepath.Join(wsDir, "consensus"), func(c domain.ConsensusMarker) error {
		return f.Memory.SaveConsensus(c)
	}); err != nil {
		return err
	}

	chanDir := filepath.Join(wsDir, "channels")
	files, err := os.ReadDir(chanDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		var msgs []domain.ChannelMessage
		if err := readJSON(filepath.Join(chanDir, file.Name()), &msgs); err != nil {
			return err
		}
		problemID := strings.TrimSuffix(file.Name(), ".json")
		if err := f.Memory.SaveChannel(ws.ID, problemID, msgs); err != nil {
			return err
		}
	}
	return nil
}

func loadDir[T any](dir string, save func(T) error) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		var v T
		if err := readJSON(filepath.Join(dir, file.Name()), &v); err != nil {
			return err
		}
		if err := save(v); err != nil {
			return err
		}
	}
	return nil
}

// SaveAgent persists the full agent registry document.
func (f *FS) SaveAgent(a domain.Agent) error {
	if err := f.Memory.SaveAgent(a); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(f.dir, "agents.json"), f.Memory.Agents())
}

// SaveWorkspace persists the workspace document.
func (f *FS) SaveWorkspace(w domain.Workspace) error {
	if err := f.Memory.SaveWorkspace(w); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(f.dir, "workspaces", w.ID, "workspace.json"), w)
}

// SaveProblem persists the problem document.
func (f *FS) SaveProblem(p domain.Problem) error {
	if err := f.Memory.SaveProblem(p); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(f.dir, "workspaces", p.WorkspaceID, "problems", p.ID+".json"), p)
}

// SaveProposal persists the proposal document.
func (f *FS) SaveProposal(p domain.Proposal) error {
	if err := f.Memory.SaveProposal(p); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(f.dir, "workspaces", p.WorkspaceID, "proposals", p.ID+".json"), p)
}

// SaveConsensus persists the consensus marker document.
func (f *FS) SaveConsensus(c domain.ConsensusMarker) error {
	if err := f.Memory.SaveConsensus(c); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(f.dir, "workspaces", c.WorkspaceID, "consensus", c.ID+".json"), c)
}

// SaveChannel persists a problem channel's message list.
func (f *FS) SaveChannel(workspaceID, problemID string, msgs []domain.ChannelMessage) error {
	if err := f.Memory.SaveChannel(workspaceID, problemID, msgs); err != nil {
		return err
	}
	if msgs == nil {
		msgs = []domain.ChannelMessage{}
	}
	return writeAtomic(filepath.Join(f.dir, "workspaces", workspaceID, "channels", problemID+".json"), msgs)
}

// readJSON unmarshals a document, treating a missing file as empty.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// writeAtomic marshals v and replaces path via temp-file-then-rename.
func writeAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
