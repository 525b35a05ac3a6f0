package domain

import "time"

// Entry is a single thought in a reasoning chain. Entries on a branch
// carry BranchID and BranchFromThought pointing into the main chain.
// Hash fields are optional: entries written before hashing was
// introduced carry neither and are skipped during verification.
type Entry struct {
	ThoughtNumber     int       `json:"thoughtNumber"`
	Content           string    `json:"content"`
	AgentID           string    `json:"agentId,omitempty"`
	BranchID          string    `json:"branchId,omitempty"`
	BranchFromThought int       `json:"branchFromThought,omitempty"`
	ContentHash       string    `json:"contentHash,omitempty"`
	ParentHash        string    `json:"parentHash,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}
