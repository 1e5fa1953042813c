// Package validation holds request-level field validation shared by the
// REST handlers.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error carries per-field validation messages so API responses can name
// every invalid field at once.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

func newError() *Error {
	return &Error{Fields: map[string]string{}}
}

func (e *Error) add(field, msg string) {
	e.Fields[field] = msg
}

func (e *Error) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
