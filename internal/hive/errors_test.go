package hive

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := New(CodeCycle, "dependency %s→%s would create a cycle", "p1", "p2")
	assert.Equal(t, "cycle: dependency p1→p2 would create a cycle", err.Error())

	withGuide := New(CodeUnregistered, "no identity").Guide("call register first")
	assert.Equal(t, "unregistered: no identity (call register first)", withGuide.Error())
}

func TestWith(t *testing.T) {
	err := New(CodeAlreadyClaimed, "claimed").With("assignedTo", "agent-1")
	require.NotNil(t, err.Context)
	assert.Equal(t, "agent-1", err.Context["assignedTo"])
}

func TestNotFound(t *testing.T) {
	err := NotFound("problem", "p42")
	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, "p42", err.Context["problemId"])
	assert.Contains(t, err.Error(), "problem not found: p42")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, CodeSelfReview, CodeOf(New(CodeSelfReview, "nope")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", New(CodeNotMember, "not in"))
	assert.Equal(t, CodeNotMember, CodeOf(wrapped))
}

func TestAsError(t *testing.T) {
	he := AsError(errors.New("disk on fire"))
	assert.Equal(t, CodeInternal, he.Code)
	assert.Equal(t, "disk on fire", he.Message)

	orig := New(CodeInvalidParams, "bad args")
	assert.Same(t, orig, AsError(orig))
}
