// Package reasoning stores append-only per-workspace thought chains
// with named branch support. The coordination managers treat this as a
// collaborator: they only append, read, and count entries.
package reasoning

import "github.com/hivemind-sh/hivemind/internal/domain"

// Store is the narrow contract the coordination layer consumes.
type Store interface {
	// CreateChain allocates a new empty chain and returns its id.
	CreateChain() (string, error)

	// SaveEntry appends an entry to the main chain.
	SaveEntry(chainID string, e domain.Entry) error

	// Entry returns the main-chain entry at thought number n (1-based).
	Entry(chainID string, n int) (domain.Entry, error)

	// EntryCount returns the main chain's length.
	EntryCount(chainID string) (int, error)

	// Entries returns all main-chain entries in order.
	Entries(chainID string) ([]domain.Entry, error)

	// SaveBranchEntry appends an entry to a named branch of the chain.
	SaveBranchEntry(chainID, branchID string, e domain.Entry) error

	// Branch returns a branch's entries in order. A branch that has
	// never been written to is returned as empty, not an error.
	Branch(chainID, branchID string) ([]domain.Entry, error)
}
