package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/hive"
)

func TestAddDependency(t *testing.T) {
	f := newFixture(t)
	p1 := f.create(t, "one")
	p2 := f.create(t, "two")

	got, err := f.manager.AddDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID}, got.DependsOn)
}

func TestAddDependencySelf(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, "one")

	_, err := f.manager.AddDependency(f.ws, p.ID, p.ID)
	assert.Equal(t, hive.CodeSelfDependency, hive.CodeOf(err))
}

func TestAddDependencyDuplicate(t *testing.T) {
	f := newFixture(t)
	p1 := f.create(t, "one")
	p2 := f.create(t, "two")

	_, err := f.manager.AddDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)
	_, err = f.manager.AddDependency(f.ws, p1.ID, p2.ID)
	assert.Equal(t, hive.CodeDuplicateDependency, hive.CodeOf(err))
}

func TestAddDependencyUnknownProblems(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, "one")

	_, err := f.manager.AddDependency(f.ws, "p404", p.ID)
	assert.Equal(t, hive.CodeNotFound, hive.CodeOf(err))
	_, err = f.manager.AddDependency(f.ws, p.ID, "p404")
	assert.Equal(t, hive.CodeNotFound, hive.CodeOf(err))
}

func TestAddDependencyDirectCycle(t *testing.T) {
	f := newFixture(t)
	p1 := f.create(t, "one")
	p2 := f.create(t, "two")

	_, err := f.manager.AddDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)

	_, err = f.manager.AddDependency(f.ws, p2.ID, p1.ID)
	assert.Equal(t, hive.CodeCycle, hive.CodeOf(err))

	// the rejected edge left no trace
	got, err := f.manager.Get(f.ws.ID, p2.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DependsOn)
}

func TestAddDependencyTransitiveCycle(t *testing.T) {
	f := newFixture(t)
	p1 := f.create(t, "one")
	p2 := f.create(t, "two")
	p3 := f.create(t, "three")

	_, err := f.manager.AddDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)
	_, err = f.manager.AddDependency(f.ws, p2.ID, p3.ID)
	require.NoError(t, err)

	// p3 → p1 closes p1 → p2 → p3 → p1
	_, err = f.manager.AddDependency(f.ws, p3.ID, p1.ID)
	assert.Equal(t, hive.CodeCycle, hive.CodeOf(err))
}

func TestRemoveDependency(t *testing.T) {
	f := newFixture(t)
	p1 := f.create(t, "one")
	p2 := f.create(t, "two")

	_, err := f.manager.AddDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)

	got, err := f.manager.RemoveDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DependsOn)

	// removing an edge that is not there is an error
	_, err = f.manager.RemoveDependency(f.ws, p1.ID, p2.ID)
	assert.Equal(t, hive.CodeNotFound, hive.CodeOf(err))
}

func TestRemoveDependencyReopensCycleSlot(t *testing.T) {
	f := newFixture(t)
	p1 := f.create(t, "one")
	p2 := f.create(t, "two")

	_, err := f.manager.AddDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)
	_, err = f.manager.RemoveDependency(f.ws, p1.ID, p2.ID)
	require.NoError(t, err)

	// the reverse edge is legal once the original is gone
	_, err = f.manager.AddDependency(f.ws, p2.ID, p1.ID)
	assert.NoError(t, err)
}

func TestReadyAndBlocked(t *testing.T) {
	f := newFixture(t)
	base := f.create(t, "base")
	mid := f.create(t, "mid")
	top := f.create(t, "top")
	free := f.create(t, "free")

	_, err := f.manager.AddDependency(f.ws, mid.ID, base.ID)
	require.NoError(t, err)
	_, err = f.manager.AddDependency(f.ws, top.ID, mid.ID)
	require.NoError(t, err)

	ready := ids(f.manager.Ready(f.ws.ID))
	assert.ElementsMatch(t, []string{base.ID, free.ID}, ready)

	blocked := ids(f.manager.Blocked(f.ws.ID))
	assert.ElementsMatch(t, []string{mid.ID, top.ID}, blocked)

	// resolving base unblocks mid but not top
	_, err = f.manager.Claim(bob, f.ws, base.ID, "")
	require.NoError(t, err)
	_, err = f.manager.Update(bob, f.ws, base.ID, domain.ProblemResolved, "done", "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{mid.ID, free.ID}, ids(f.manager.Ready(f.ws.ID)))
	assert.ElementsMatch(t, []string{top.ID}, ids(f.manager.Blocked(f.ws.ID)))
}

func TestReadyExcludesNonOpen(t *testing.T) {
	f := newFixture(t)
	p := f.create(t, "claimed away")

	_, err := f.manager.Claim(bob, f.ws, p.ID, "")
	require.NoError(t, err)

	assert.Empty(t, f.manager.Ready(f.ws.ID))
	assert.Empty(t, f.manager.Blocked(f.ws.ID))
}

func ids(problems []domain.Problem) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.ID)
	}
	return out
}
