package config

import "fmt"

// Error reports a configuration failure: a missing required field, a value
// that cannot be coerced to its declared type, or a value outside its
// domain. It is always fatal at resolution time, before any generation work
// begins.
type Error struct {
	// Key is the offending "section.key" path, or empty when the error
	// applies to the configuration as a whole.
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Key, e.Reason)
}
