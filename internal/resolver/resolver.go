// Package resolver turns a named collection of JSON fragments into a single
// fully-substituted JSON value. A fragment's value may reference other
// fragments by name: as a whole value ("[name]"), embedded in a larger
// string ("Hello, [name]!"), or as an object key. Cycles are detected while
// the fragment tree is parsed, and missing references follow a configurable
// policy.
package resolver

import (
	"github.com/mcncl/jsonfrag/internal/errors"
	"github.com/mcncl/jsonfrag/internal/models"
)

// Resolver resolves fragments against an immutable Config. A single Resolver
// may serve concurrent Resolve calls: all per-call state (dependency
// tracking, evaluation context, the AST) is allocated inside each call.
type Resolver struct {
	config *Config
}

// NewResolver creates a Resolver. A nil config means DefaultConfig.
func NewResolver(config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Resolver{config: config}
}

// Config returns the resolver's configuration.
func (r *Resolver) Config() *Config {
	return r.config
}

// Resolve builds and evaluates the AST for startFragment, returning the
// fully substituted value. The fragment map is read, never mutated. A
// missing start fragment fails with NotFoundError regardless of the
// configured missing-reference policy.
func (r *Resolver) Resolve(fragments models.FragmentMap, startFragment string) (models.JSONValue, error) {
	root, ctx, _, err := r.parseStart(fragments, startFragment)
	if err != nil {
		return nil, err
	}
	return newEvaluator(fragments, r.config, ctx).evaluate(root)
}

// Dependencies parses startFragment without evaluating it and returns the
// recorded reference edges (dependent -> sorted dependency names). A cyclic
// input fails with CircularDependencyError, same as Resolve.
func (r *Resolver) Dependencies(fragments models.FragmentMap, startFragment string) (map[string][]string, error) {
	_, _, tracker, err := r.parseStart(fragments, startFragment)
	if err != nil {
		return nil, err
	}
	return tracker.edges(), nil
}

// parseStart allocates per-call state and parses the start fragment's body,
// surfacing cycle errors before any evaluation happens.
func (r *Resolver) parseStart(fragments models.FragmentMap, startFragment string) (fragmentNode, *evalContext, *dependencyTracker, error) {
	body, ok := fragments[startFragment]
	if !ok {
		return nil, nil, nil, &errors.NotFoundError{Fragment: startFragment}
	}

	ctx := newEvalContext()
	ctx.push(startFragment)

	tracker := newDependencyTracker()
	if err := tracker.beginEvaluation(startFragment); err != nil {
		return nil, nil, nil, err
	}
	defer tracker.endEvaluation(startFragment)

	root, err := newFragmentParser(fragments, r.config, tracker).parse(body, startFragment)
	if err != nil {
		return nil, nil, nil, err
	}
	return root, ctx, tracker, nil
}
