package resolver

import (
	"fmt"
	"strings"

	"github.com/mcncl/jsonfrag/internal/models"
)

// MissingFragmentBehavior controls what happens when a referenced fragment
// has no entry in the fragment map. The start fragment is exempt: resolving
// a missing start fragment always fails, regardless of this setting.
type MissingFragmentBehavior int

const (
	// Throw fails the resolution with a NotFoundError.
	Throw MissingFragmentBehavior = iota
	// LeaveUnresolved keeps the delimited reference text as-is.
	LeaveUnresolved
	// UseDefault substitutes the configured default value.
	UseDefault
	// Remove substitutes an empty string.
	Remove
)

// String returns the snake_case name used in config files and CLI flags.
func (b MissingFragmentBehavior) String() string {
	switch b {
	case Throw:
		return "throw"
	case LeaveUnresolved:
		return "leave_unresolved"
	case UseDefault:
		return "use_default"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("MissingFragmentBehavior(%d)", int(b))
	}
}

// ParseMissingFragmentBehavior converts a config/CLI string into a behavior.
func ParseMissingFragmentBehavior(s string) (MissingFragmentBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "throw":
		return Throw, nil
	case "leave_unresolved", "leave":
		return LeaveUnresolved, nil
	case "use_default", "default":
		return UseDefault, nil
	case "remove":
		return Remove, nil
	default:
		return Throw, fmt.Errorf("unknown missing fragment behavior %q (want throw, leave_unresolved, use_default or remove)", s)
	}
}

// Delimiters mark a fragment reference inside a string value.
type Delimiters struct {
	Start string
	End   string
}

// Config is the immutable policy for one Resolver. It is shared, never
// mutated, by every Resolve call on that Resolver.
type Config struct {
	Delimiters              Delimiters
	MissingFragmentBehavior MissingFragmentBehavior

	// DefaultValue is substituted for missing references when the behavior
	// is UseDefault. At template substitution sites it must be a string.
	DefaultValue models.JSONValue
}

// DefaultConfig returns the canonical configuration: square-bracket
// delimiters and fail-fast on missing fragments.
func DefaultConfig() *Config {
	return &Config{
		Delimiters:              Delimiters{Start: "[", End: "]"},
		MissingFragmentBehavior: Throw,
	}
}

// isWholeReference reports whether s, in its entirety, is a delimited
// reference. "[]" with 1-char delimiters references the empty name.
func (c *Config) isWholeReference(s string) bool {
	start, end := c.Delimiters.Start, c.Delimiters.End
	return len(s) >= len(start)+len(end) &&
		strings.HasPrefix(s, start) &&
		strings.HasSuffix(s, end)
}

// referenceName extracts the fragment name from a whole reference.
func (c *Config) referenceName(reference string) string {
	return reference[len(c.Delimiters.Start) : len(reference)-len(c.Delimiters.End)]
}

// wrapReference rebuilds the delimited text for a fragment name.
func (c *Config) wrapReference(name string) string {
	return c.Delimiters.Start + name + c.Delimiters.End
}
