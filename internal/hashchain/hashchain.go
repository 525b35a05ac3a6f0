// Package hashchain implements a tamper-evident hash chain over
// reasoning-chain entries. Each entry's digest covers its content,
// position, resolved parent digest, author, and timestamp; verification
// walks a chain and reports per-entry mismatches. Entries written
// before hashing existed carry no digest and are skipped.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hivemind-sh/hivemind/internal/domain"
)

// Genesis is the reserved parent-hash sentinel for the first entry in a chain.
const Genesis = "0000000000000000000000000000000000000000000000000000000000000000"

// Compute returns the hex SHA-256 digest over an entry's hashed fields.
// Any change to any input changes the digest.
func Compute(content string, thoughtNumber int, parentHash, agentID string, ts time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\n%s\n%s\n%s\n%s", thoughtNumber, content, parentHash, agentID, ts.UTC().Format(time.RFC3339Nano))
	return hex.EncodeToString(h.Sum(nil))
}

// Seal fills in an entry's ContentHash given an already-resolved parent
// hash, and returns the sealed entry.
func Seal(e domain.Entry, parentHash string) domain.Entry {
	e.ParentHash = parentHash
	e.ContentHash = Compute(e.Content, e.ThoughtNumber, parentHash, e.AgentID, e.Timestamp)
	return e
}

// ResolveParent determines the expected parent digest for entries[i]:
// the genesis sentinel for the first entry, the branch-from entry's
// stored digest for the first entry of a branch, and otherwise the
// immediate predecessor's stored digest. When the resolved-to entry
// carries no stored digest (legacy data) the entry's own declared
// ParentHash is trusted, so one legacy entry does not poison the rest
// of the chain.
func ResolveParent(entries []domain.Entry, i int) string {
	e := entries[i]
	if e.BranchID != "" && e.BranchFromThought > 0 && firstOfBranch(entries, i) {
		for j := range entries {
			if entries[j].BranchID == "" && entries[j].ThoughtNumber == e.BranchFromThought {
				if entries[j].ContentHash == "" {
					return e.ParentHash
				}
				return entries[j].ContentHash
			}
		}
		return e.ParentHash
	}
	prev := previousInSequence(entries, i)
	if prev < 0 {
		return Genesis
	}
	if entries[prev].ContentHash == "" {
		return e.ParentHash
	}
	return entries[prev].ContentHash
}

// firstOfBranch reports whether no earlier entry shares entries[i]'s branch.
func firstOfBranch(entries []domain.Entry, i int) bool {
	for j := 0; j < i; j++ {
		if entries[j].BranchID == entries[i].BranchID {
			return false
		}
	}
	return true
}

// previousInSequence finds the nearest earlier entry in the same
// sequence (same branch id, or the main chain for unbranched entries).
func previousInSequence(entries []domain.Entry, i int) int {
	for j := i - 1; j >= 0; j-- {
		if entries[j].BranchID == entries[i].BranchID {
			return j
		}
	}
	return -1
}

// Mismatch describes one entry whose recomputed digest differs from the
// stored one: tampered content or a broken parent link.
type Mismatch struct {
	ThoughtNumber int    `json:"thoughtNumber"`
	BranchID      string `json:"branchId,omitempty"`
	Expected      string `json:"expected"`
	Stored        string `json:"stored"`
}

// Result is the outcome of verifying a chain.
type Result struct {
	Valid         bool       `json:"valid"`
	VerifiedCount int        `json:"verifiedCount"`
	SkippedCount  int        `json:"skippedCount"`
	Mismatches    []Mismatch `json:"mismatches,omitempty"`
}

// Verify walks entries in order, recomputes each entry's expected
// digest from its declared fields and parent resolution, and compares
// it to the stored digest. Entries without a stored digest are counted
// as skipped, not failed. The chain is valid iff no mismatches exist
// among entries that do carry a digest.
func Verify(entries []domain.Entry) Result {
	res := Result{Valid: true}
	for i, e := range entries {
		if e.ContentHash == "" {
			res.SkippedCount++
			continue
		}
		parent := ResolveParent(entries, i)
		expected := Compute(e.Content, e.ThoughtNumber, parent, e.AgentID, e.Timestamp)
		if !strings.EqualFold(expected, e.ContentHash) {
			res.Valid = false
			res.Mismatches = append(res.Mismatches, Mismatch{
				ThoughtNumber: e.ThoughtNumber,
				BranchID:      e.BranchID,
				Expected:      expected,
				Stored:        e.ContentHash,
			})
			continue
		}
		res.VerifiedCount++
	}
	return res
}
