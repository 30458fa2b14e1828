package resolver

import "github.com/mcncl/jsonfrag/internal/models"

// fragmentNode is the closed set of AST shapes a fragment value parses into.
// Dispatch happens by type switch in the evaluator; the set is fixed, so no
// visitor indirection is needed. Each node exclusively owns its children:
// the tree cannot contain cycles because fragment-level cycles are rejected
// during parsing, before a self-referential tree could be built.
type fragmentNode interface {
	isFragmentNode()
}

// literalNode holds a value that needs no further substitution.
type literalNode struct {
	value models.JSONValue
}

// referenceNode is a whole-value reference to another fragment.
type referenceNode struct {
	name string
}

// templateNode is a string mixing literal text with embedded references.
type templateNode struct {
	text string
}

// objectEntry pairs a key node (literal or reference) with its value node.
type objectEntry struct {
	key   fragmentNode
	value fragmentNode
}

// objectNode preserves the insertion order of its entries.
type objectNode struct {
	entries []objectEntry
}

// arrayNode preserves element order.
type arrayNode struct {
	elements []fragmentNode
}

func (*literalNode) isFragmentNode()   {}
func (*referenceNode) isFragmentNode() {}
func (*templateNode) isFragmentNode()  {}
func (*objectNode) isFragmentNode()    {}
func (*arrayNode) isFragmentNode()     {}
