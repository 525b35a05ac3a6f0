package problem

import (
	"time"

	"github.com/hivemind-sh/hivemind/internal/domain"
	"github.com/hivemind-sh/hivemind/internal/graph"
	"github.com/hivemind-sh/hivemind/internal/hive"
)

// depGraph builds the workspace's dependency graph: an edge P→Q means
// P depends on Q.
func (m *Manager) depGraph(workspaceID string) *graph.Directed {
	g := graph.New()
	for _, p := range m.store.Problems(workspaceID) {
		for _, dep := range p.DependsOn {
			g.AddEdge(p.ID, dep)
		}
	}
	return g
}

// AddDependency records that problemID depends on dependsOnID. The edge
// is rejected before any mutation when it is a self-dependency, a
// duplicate, targets a nonexistent problem, or would close a cycle —
// the cycle check walks existing edges from the candidate target and
// rejects on any path back to the source.
func (m *Manager) AddDependency(ws domain.Workspace, problemID, dependsOnID string) (domain.Problem, error) {
	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	if problemID == dependsOnID {
		return domain.Problem{}, hive.New(hive.CodeSelfDependency, "problem %s cannot depend on itself", problemID)
	}
	p, ok := m.store.Problem(ws.ID, problemID)
	if !ok {
		return domain.Problem{}, hive.NotFound("problem", problemID)
	}
	if _, ok := m.store.Problem(ws.ID, dependsOnID); !ok {
		return domain.Problem{}, hive.NotFound("problem", dependsOnID)
	}
	if p.DependsOnSet()[dependsOnID] {
		return domain.Problem{}, hive.New(hive.CodeDuplicateDependency,
			"problem %s already depends on %s", problemID, dependsOnID)
	}
	if m.depGraph(ws.ID).WouldCycle(problemID, dependsOnID) {
		return domain.Problem{}, hive.New(hive.CodeCycle,
			"dependency %s→%s would create a cycle", problemID, dependsOnID).
			With("dependsOnId", dependsOnID)
	}

	p.DependsOn = append(p.DependsOn, dependsOnID)
	p.UpdatedAt = time.Now()
	if err := m.store.SaveProblem(p); err != nil {
		return domain.Problem{}, err
	}
	return p, nil
}

// RemoveDependency deletes an existing dependency edge. Removing an
// edge that does not exist is an error, symmetric with duplicate-add.
func (m *Manager) RemoveDependency(ws domain.Workspace, problemID, dependsOnID string) (domain.Problem, error) {
	lock := m.ws.Locker(ws.ID)
	lock.Lock()
	defer lock.Unlock()

	p, ok := m.store.Problem(ws.ID, problemID)
	if !ok {
		return domain.Problem{}, hive.NotFound("problem", problemID)
	}
	found := false
	deps := p.DependsOn[:0]
	for _, dep := range p.DependsOn {
		if dep == dependsOnID {
			found = true
			continue
		}
		deps = append(deps, dep)
	}
	if !found {
		return domain.Problem{}, hive.New(hive.CodeNotFound,
			"problem %s does not depend on %s", problemID, dependsOnID)
	}

	p.DependsOn = deps
	p.UpdatedAt = time.Now()
	if err := m.store.SaveProblem(p); err != nil {
		return domain.Problem{}, err
	}
	return p, nil
}

// Ready returns open problems whose dependencies are all resolved. A
// problem with no dependencies is always ready.
func (m *Manager) Ready(workspaceID string) []domain.Problem {
	return m.filterOpen(workspaceID, true)
}

// Blocked returns open problems with at least one unresolved dependency.
func (m *Manager) Blocked(workspaceID string) []domain.Problem {
	return m.filterOpen(workspaceID, false)
}

func (m *Manager) filterOpen(workspaceID string, wantReady bool) []domain.Problem {
	problems := m.store.Problems(workspaceID)
	byID := make(map[string]domain.Problem, len(problems))
	for _, p := range problems {
		byID[p.ID] = p
	}

	out := []domain.Problem{}
	for _, p := range problems {
		if p.Status != domain.ProblemOpen {
			continue
		}
		ready := true
		for _, dep := range p.DependsOn {
			if d, ok := byID[dep]; !ok || d.Status != domain.ProblemResolved {
				ready = false
				break
			}
		}
		if ready == wantReady {
			out = append(out, p)
		}
	}
	return out
}

// Get returns one problem.
func (m *Manager) Get(workspaceID, problemID string) (domain.Problem, error) {
	p, ok := m.store.Problem(workspaceID, problemID)
	if !ok {
		return domain.Problem{}, hive.NotFound("problem", problemID)
	}
	return p, nil
}

// List returns all problems in a workspace.
func (m *Manager) List(workspaceID string) []domain.Problem {
	return m.store.Problems(workspaceID)
}
