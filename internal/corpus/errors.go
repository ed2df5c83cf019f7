// Package corpus reads the tabular role corpus used to build the role index.
package corpus

import "fmt"

// ReadError is returned when the corpus cannot be read or parsed.
type ReadError struct {
	Path    string
	Line    int
	Message string
	Cause   error
}

func (e *ReadError) Error() string {
	where := e.Path
	if where == "" {
		where = "corpus"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}
