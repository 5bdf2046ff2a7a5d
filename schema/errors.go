package schema

import "fmt"

// MismatchError is returned when a record cannot be decoded or converted
// against the supplied schema. It is never retried: a retry cannot fix a
// schema problem.
type MismatchError struct {
	Field  string
	Reason string
}

func (e MismatchError) Error() string {
	return fmt.Sprintf("schema mismatch on field %q: %s", e.Field, e.Reason)
}

func (e MismatchError) Is(target error) bool {
	_, ok := target.(MismatchError)
	return ok
}
