package resolver

import "strings"

// evalContext tracks the current traversal path during one resolution call,
// purely for human-readable error locations ("/greeting/message/2"). It is
// call-scoped and discarded when the call returns.
type evalContext struct {
	path []string
}

func newEvalContext() *evalContext {
	return &evalContext{}
}

func (c *evalContext) push(component string) {
	c.path = append(c.path, component)
}

func (c *evalContext) pop() {
	if len(c.path) > 0 {
		c.path = c.path[:len(c.path)-1]
	}
}

// pathString renders the current path for error messages; the empty path
// renders as "/".
func (c *evalContext) pathString() string {
	if len(c.path) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, component := range c.path {
		sb.WriteByte('/')
		sb.WriteString(component)
	}
	return sb.String()
}
