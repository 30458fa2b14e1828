package resolver

import (
	"strings"

	"github.com/mcncl/jsonfrag/internal/models"
)

// fragmentParser converts raw fragment values into AST nodes. While parsing
// it records reference edges and eagerly walks referenced fragments, so a
// cycle surfaces here rather than midway through evaluation.
type fragmentParser struct {
	fragments models.FragmentMap
	config    *Config
	tracker   *dependencyTracker
}

func newFragmentParser(fragments models.FragmentMap, config *Config, tracker *dependencyTracker) *fragmentParser {
	return &fragmentParser{
		fragments: fragments,
		config:    config,
		tracker:   tracker,
	}
}

// parse converts one JSON value belonging to currentFragment into a node.
// An empty currentFragment suppresses dependency recording and the eager
// walk; it is used when classifying a value with no known dependent.
func (p *fragmentParser) parse(value models.JSONValue, currentFragment string) (fragmentNode, error) {
	switch v := value.(type) {
	case string:
		return p.parseString(v, currentFragment)
	case *models.JSONObject:
		node := &objectNode{entries: make([]objectEntry, 0, v.Len())}
		for _, key := range v.Keys() {
			keyNode, err := p.parseKey(key, currentFragment)
			if err != nil {
				return nil, err
			}
			entryValue, _ := v.Get(key)
			valueNode, err := p.parse(entryValue, currentFragment)
			if err != nil {
				return nil, err
			}
			node.entries = append(node.entries, objectEntry{key: keyNode, value: valueNode})
		}
		return node, nil
	case models.JSONArray:
		node := &arrayNode{elements: make([]fragmentNode, 0, len(v))}
		for _, element := range v {
			elementNode, err := p.parse(element, currentFragment)
			if err != nil {
				return nil, err
			}
			node.elements = append(node.elements, elementNode)
		}
		return node, nil
	default:
		// Numbers, booleans and null pass through untouched.
		return &literalNode{value: v}, nil
	}
}

// parseString classifies a string value as a whole reference, a template or
// a plain literal.
func (p *fragmentParser) parseString(s, currentFragment string) (fragmentNode, error) {
	if p.config.isWholeReference(s) {
		name := p.config.referenceName(s)
		if err := p.recordReference(currentFragment, name); err != nil {
			return nil, err
		}
		return &referenceNode{name: name}, nil
	}
	if strings.Contains(s, p.config.Delimiters.Start) {
		return &templateNode{text: s}, nil
	}
	return &literalNode{value: s}, nil
}

// parseKey classifies an object key. Keys are either whole references or
// literals; embedded references inside a larger key are not expanded.
func (p *fragmentParser) parseKey(key, currentFragment string) (fragmentNode, error) {
	if p.config.isWholeReference(key) {
		name := p.config.referenceName(key)
		if err := p.recordReference(currentFragment, name); err != nil {
			return nil, err
		}
		return &referenceNode{name: name}, nil
	}
	return &literalNode{value: key}, nil
}

// recordReference records the edge currentFragment -> name and eagerly
// parses the referenced fragment's body under its own name. The eager walk
// is what turns a reference loop into a parse-time cycle error. A missing
// target is skipped here; the evaluator applies the missing policy.
func (p *fragmentParser) recordReference(currentFragment, name string) error {
	if currentFragment == "" {
		return nil
	}
	p.tracker.addDependency(currentFragment, name)

	body, ok := p.fragments[name]
	if !ok {
		return nil
	}
	if err := p.tracker.beginEvaluation(name); err != nil {
		return err
	}
	defer p.tracker.endEvaluation(name)
	_, err := p.parse(body, name)
	return err
}
