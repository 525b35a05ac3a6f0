package reasoning

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
)

// MemoryStore keeps chains in process memory. Used when no data dir is
// configured and by tests.
type MemoryStore struct {
	mu     sync.RWMutex
	chains map[string]*chainState
}

type chainState struct {
	entries  []domain.Entry
	branches map[string][]domain.Entry
}

// NewMemoryStore creates an empty in-memory reasoning store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chains: make(map[string]*chainState)}
}

// CreateChain allocates a new empty chain.
func (s *MemoryStore) CreateChain() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.chains[id] = &chainState{branches: make(map[string][]domain.Entry)}
	return id, nil
}

// SaveEntry appends an entry to the main chain.
func (s *MemoryStore) SaveEntry(chainID string, e domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chains[chainID]
	if !ok {
		return hive.NotFound("chain", chainID)
	}
	c.entries = append(c.entries, e)
	return nil
}

// Entry returns the main-chain entry at thought number n (1-based).
func (s *MemoryStore) Entry(chainID string, n int) (domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	if !ok {
		return domain.Entry{}, hive.NotFound("chain", chainID)
	}
	if n < 1 || n > len(c.entries) {
		return domain.Entry{}, hive.New(hive.CodeNotFound, "chain %s has no entry %d", chainID, n)
	}
	return c.entries[n-1], nil
}

// EntryCount returns the main chain's length.
func (s *MemoryStore) EntryCount(chainID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	if !ok {
		return 0, hive.NotFound("chain", chainID)
	}
	return len(c.entries), nil
}

// Entries returns a copy of all main-chain entries in order.
func (s *MemoryStore) Entries(chainID string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	if !ok {
		return nil, hive.NotFound("chain", chainID)
	}
	out := make([]domain.Entry, len(c.entries))
	copy(out, c.entries)
	return out, nil
}

// SaveBranchEntry appends an entry to a named branch.
func (s *MemoryStore) SaveBranchEntry(chainID, branchID string, e domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chains[chainID]
	if !ok {
		return hive.NotFound("chain", chainID)
	}
	e.BranchID = branchID
	c.branches[branchID] = append(c.branches[branchID], e)
	return nil
}

// Branch returns a copy of a branch's entries in order.
func (s *MemoryStore) Branch(chainID, branchID string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	if !ok {
		return nil, hive.NotFound("chain", chainID)
	}
	entries := c.branches[branchID]
	out := make([]domain.Entry, len(entries))
	copy(out, entries)
	return out, nil
}
