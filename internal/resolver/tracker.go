package resolver

import (
	"sort"

	"github.com/mcncl/jsonfrag/internal/errors"
)

// dependencyTracker records fragment-to-fragment reference edges and detects
// cycles. Detection is stack-based: parsing a fragment brackets it with
// beginEvaluation/endEvaluation, and re-entering a fragment that is still on
// the stack is a cycle. The stack is kept ordered so the error carries the
// full cycle path starting at the re-entered fragment.
//
// The edge multimap is not consulted for detection; it is recorded so
// callers can inspect the dependency graph of an acyclic resolution.
type dependencyTracker struct {
	dependencies map[string]map[string]struct{}
	evaluating   []string
	active       map[string]struct{}
}

func newDependencyTracker() *dependencyTracker {
	return &dependencyTracker{
		dependencies: make(map[string]map[string]struct{}),
		active:       make(map[string]struct{}),
	}
}

// addDependency records the edge dependent -> dependency. An empty dependent
// is a no-op: the root fragment has nothing depending on it.
func (t *dependencyTracker) addDependency(dependent, dependency string) {
	if dependent == "" {
		return
	}
	deps, ok := t.dependencies[dependent]
	if !ok {
		deps = make(map[string]struct{})
		t.dependencies[dependent] = deps
	}
	deps[dependency] = struct{}{}
}

// beginEvaluation marks name as in progress. It fails if name is already on
// the evaluation stack, which means the reference chain has looped back.
func (t *dependencyTracker) beginEvaluation(name string) error {
	if _, inProgress := t.active[name]; inProgress {
		return &errors.CircularDependencyError{Cycle: t.cycleFrom(name)}
	}
	t.active[name] = struct{}{}
	t.evaluating = append(t.evaluating, name)
	return nil
}

// endEvaluation unmarks name after its fragment has been fully processed.
func (t *dependencyTracker) endEvaluation(name string) {
	delete(t.active, name)
	for i := len(t.evaluating) - 1; i >= 0; i-- {
		if t.evaluating[i] == name {
			t.evaluating = append(t.evaluating[:i], t.evaluating[i+1:]...)
			break
		}
	}
}

// cycleFrom builds the ordered cycle path: the stack from the first
// occurrence of name, closed by repeating name.
func (t *dependencyTracker) cycleFrom(name string) []string {
	for i, n := range t.evaluating {
		if n == name {
			cycle := append([]string(nil), t.evaluating[i:]...)
			return append(cycle, name)
		}
	}
	return []string{name, name}
}

// edges returns the recorded dependency multimap with sorted value lists,
// for stable output.
func (t *dependencyTracker) edges() map[string][]string {
	result := make(map[string][]string, len(t.dependencies))
	for dependent, deps := range t.dependencies {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		result[dependent] = names
	}
	return result
}
