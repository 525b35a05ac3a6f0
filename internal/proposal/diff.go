package proposal

import (
	"strings"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
)

// Diff compares two branches that fork from the same main chain.
type Diff struct {
	ForkPoint      int             `json:"forkPoint"`
	Shared         []domain.Entry  `json:"shared"`
	BranchAUnique  []domain.Entry  `json:"branchAUnique"`
	BranchBUnique  []domain.Entry  `json:"branchBUnique"`
	Contradictions []Contradiction `json:"contradictions,omitempty"`
}

// Contradiction pairs a claim from one branch with its negation from
// the other, keyed by the shared subject text.
type Contradiction struct {
	Subject string `json:"subject"`
	ClaimA  string `json:"claimA"`
	ClaimB  string `json:"claimB"`
}

// BranchDiff identifies the entries shared up to the branches' common
// fork point, each branch's unique entries, and direct contradictions:
// claim statements where one branch asserts a proposition and the
// other asserts its negation over the same subject text.
func (m *Manager) BranchDiff(ws domain.Workspace, branchA, branchB string) (Diff, error) {
	entriesA, err := m.chains.Branch(ws.ChainID, branchA)
	if err != nil {
		return Diff{}, err
	}
	entriesB, err := m.chains.Branch(ws.ChainID, branchB)
	if err != nil {
		return Diff{}, err
	}
	if len(entriesA) == 0 {
		return Diff{}, hive.NotFound("branch", branchA)
	}
	if len(entriesB) == 0 {
		return Diff{}, hive.NotFound("branch", branchB)
	}

	// The common ancestor is the earlier of the two fork points.
	fork := entriesA[0].BranchFromThought
	if bf := entriesB[0].BranchFromThought; bf < fork {
		fork = bf
	}

	shared := []domain.Entry{}
	main, err := m.chains.Entries(ws.ChainID)
	if err != nil {
		return Diff{}, err
	}
	for _, e := range main {
		if e.ThoughtNumber <= fork {
			shared = append(shared, e)
		}
	}

	return Diff{
		ForkPoint:      fork,
		Shared:         shared,
		BranchAUnique:  entriesA,
		BranchBUnique:  entriesB,
		Contradictions: findContradictions(entriesA, entriesB),
	}, nil
}

// claim is a normalized proposition extracted from entry text.
type claim struct {
	subject string // proposition with negations stripped
	negated bool
	text    string // original sentence
}

// findContradictions flags claim pairs where the branches assert
// opposite polarities of the same proposition.
func findContradictions(a, b []domain.Entry) []Contradiction {
	claimsA := extractClaims(a)
	claimsB := extractClaims(b)

	bySubject := make(map[string]claim, len(claimsA))
	for _, c := range claimsA {
		if _, seen := bySubject[c.subject]; !seen {
			bySubject[c.subject] = c
		}
	}

	out := []Contradiction{}
	reported := map[string]bool{}
	for _, cb := range claimsB {
		ca, ok := bySubject[cb.subject]
		if !ok || ca.negated == cb.negated || reported[cb.subject] {
			continue
		}
		reported[cb.subject] = true
		out = append(out, Contradiction{Subject: cb.subject, ClaimA: ca.text, ClaimB: cb.text})
	}
	return out
}

// claimVerbs mark a sentence as an explicit claim statement.
var claimVerbs = []string{" is ", " are ", " was ", " were ", " will ", " can ", " cannot ", " must ", " should ", " does ", " do "}

var negationWords = map[string]bool{"not": true, "never": true, "cannot": true}

// extractClaims pulls claim sentences out of entry contents and
// normalizes each into a polarity plus a negation-stripped subject.
func extractClaims(entries []domain.Entry) []claim {
	var out []claim
	for _, e := range entries {
		for _, sentence := range splitSentences(e.Content) {
			lower := " " + expandContractions(strings.ToLower(sentence)) + " "
			isClaim := false
			for _, v := range claimVerbs {
				if strings.Contains(lower, v) {
					isClaim = true
					break
				}
			}
			if !isClaim {
				continue
			}
			subject, negated := normalize(sentence)
			if subject == "" {
				continue
			}
			out = append(out, claim{subject: subject, negated: negated, text: sentence})
		}
	}
	return out
}

func splitSentences(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == ';'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var contractions = map[string]string{
	"isn't": "is not", "aren't": "are not", "wasn't": "was not",
	"weren't": "were not", "won't": "will not", "can't": "cannot",
	"doesn't": "does not", "don't": "do not", "shouldn't": "should not",
	"mustn't": "must not",
}

func expandContractions(lower string) string {
	for contraction, expanded := range contractions {
		lower = strings.ReplaceAll(lower, contraction, expanded)
	}
	return lower
}

// normalize lowercases a sentence, expands common contractions, strips
// negation words, and reports whether the claim was negated. Double
// negation cancels.
func normalize(sentence string) (string, bool) {
	lower := expandContractions(strings.ToLower(sentence))

	negations := 0
	words := strings.Fields(lower)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		trimmed := strings.Trim(w, ",:()\"'")
		if negationWords[trimmed] {
			negations++
			if trimmed == "cannot" {
				kept = append(kept, "can")
			}
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " "), negations%2 == 1
}
