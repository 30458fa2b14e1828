package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcncl/jsonfrag/internal/errors"
	"github.com/mcncl/jsonfrag/internal/models"
)

// evaluator walks an AST and produces the final JSON value. It never touches
// the fragment map beyond lookups; the only thing it mutates is its own
// evaluation context, pushed and popped around each descent.
type evaluator struct {
	fragments models.FragmentMap
	config    *Config
	ctx       *evalContext
}

func newEvaluator(fragments models.FragmentMap, config *Config, ctx *evalContext) *evaluator {
	return &evaluator{
		fragments: fragments,
		config:    config,
		ctx:       ctx,
	}
}

func (e *evaluator) evaluate(n fragmentNode) (models.JSONValue, error) {
	switch n := n.(type) {
	case *literalNode:
		return n.value, nil
	case *referenceNode:
		return e.evaluateReference(n)
	case *templateNode:
		return e.evaluateTemplate(n)
	case *objectNode:
		return e.evaluateObject(n)
	case *arrayNode:
		return e.evaluateArray(n)
	default:
		return nil, errors.NewResolutionError(fmt.Sprintf("unknown node type %T", n), nil)
	}
}

// evaluateReference substitutes the referenced fragment's raw stored value,
// preserving its type. The value is returned as-is: nested references were
// already walked for cycles at parse time, and substituting them again here
// would double-substitute.
func (e *evaluator) evaluateReference(n *referenceNode) (models.JSONValue, error) {
	value, ok := e.fragments[n.name]
	if !ok {
		switch e.config.MissingFragmentBehavior {
		case LeaveUnresolved:
			return e.config.wrapReference(n.name), nil
		case UseDefault:
			return e.config.DefaultValue, nil
		case Remove:
			return "", nil
		default:
			return nil, errors.AtPath(&errors.NotFoundError{Fragment: n.name}, e.ctx.pathString())
		}
	}

	e.ctx.push(n.name)
	defer e.ctx.pop()
	return value, nil
}

// evaluateTemplate splices referenced string fragments into the template
// text. Each pass scans left to right for the innermost delimited span: the
// first end delimiter, then the nearest start delimiter that still fits
// before it. Passes repeat until one completes without a replacement, so
// spliced-in text that happens to contain delimiter characters is re-scanned
// rather than left half-processed.
func (e *evaluator) evaluateTemplate(n *templateNode) (models.JSONValue, error) {
	startDelim := e.config.Delimiters.Start
	endDelim := e.config.Delimiters.End
	result := n.text

	for {
		madeChanges := false
		pos := 0

		for pos < len(result) {
			endPos := strings.Index(result[pos:], endDelim)
			if endPos < 0 {
				break
			}
			endPos += pos

			startPos := strings.LastIndex(result[:endPos], startDelim)
			if startPos < 0 || startPos < pos {
				pos = endPos + len(endDelim)
				continue
			}

			name := result[startPos+len(startDelim) : endPos]
			replacement, replaced, err := e.templateReplacement(name)
			if err != nil {
				return nil, err
			}
			if !replaced {
				// LeaveUnresolved: keep the span and scan past it.
				pos = endPos + len(endDelim)
				continue
			}

			result = result[:startPos] + replacement + result[endPos+len(endDelim):]
			madeChanges = true
		}

		if !madeChanges {
			return result, nil
		}
	}
}

// templateReplacement resolves one embedded reference. The second return is
// false when the span should be kept as-is (LeaveUnresolved). Errors are
// annotated with the context path while the template component is pushed.
func (e *evaluator) templateReplacement(name string) (string, bool, error) {
	e.ctx.push("template:" + name)
	defer e.ctx.pop()

	value, ok := e.fragments[name]
	if !ok {
		switch e.config.MissingFragmentBehavior {
		case LeaveUnresolved:
			return "", false, nil
		case UseDefault:
			s, isString := e.config.DefaultValue.(string)
			if !isString {
				return "", false, errors.AtPath(
					&errors.InvalidKeyError{Detail: "default value for string template must be a string"},
					e.ctx.pathString(),
				)
			}
			return s, true, nil
		case Remove:
			return "", true, nil
		default:
			return "", false, errors.AtPath(&errors.NotFoundError{Fragment: name}, e.ctx.pathString())
		}
	}

	s, isString := value.(string)
	if !isString {
		return "", false, errors.AtPath(
			&errors.InvalidKeyError{Detail: fmt.Sprintf("fragment in string template must resolve to a string: %s", name)},
			e.ctx.pathString(),
		)
	}
	return s, true, nil
}

// evaluateObject resolves keys first, then values with the resolved key on
// the context path. Duplicate resolved keys follow last-write-wins.
func (e *evaluator) evaluateObject(n *objectNode) (models.JSONValue, error) {
	result := models.NewJSONObject()
	for _, entry := range n.entries {
		keyValue, err := e.evaluate(entry.key)
		if err != nil {
			return nil, err
		}
		key, isString := keyValue.(string)
		if !isString {
			return nil, errors.AtPath(
				&errors.InvalidKeyError{Detail: "object key must evaluate to a string"},
				e.ctx.pathString(),
			)
		}

		e.ctx.push(key)
		value, err := e.evaluate(entry.value)
		e.ctx.pop()
		if err != nil {
			return nil, err
		}
		result.Set(key, value)
	}
	return result, nil
}

func (e *evaluator) evaluateArray(n *arrayNode) (models.JSONValue, error) {
	result := make(models.JSONArray, 0, len(n.elements))
	for i, element := range n.elements {
		e.ctx.push(strconv.Itoa(i))
		value, err := e.evaluate(element)
		e.ctx.pop()
		if err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, nil
}
