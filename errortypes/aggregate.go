package errortypes

import (
	"fmt"
	"strings"
)

// AggregateErrors groups the errors of one startup or validation step under a common message.
type AggregateErrors struct {
	Message string
	Errors  []error
}

func NewAggregateErrors(msg string, errs []error) AggregateErrors {
	return AggregateErrors{Message: msg, Errors: errs}
}

// Error lists every wrapped error on its own numbered line. It is empty when nothing was collected.
func (e AggregateErrors) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	if len(e.Errors) == 1 {
		fmt.Fprintf(&sb, "%s (1 error):\n", e.Message)
	} else {
		fmt.Fprintf(&sb, "%s (%d errors):\n", e.Message, len(e.Errors))
	}
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d: %s\n", i+1, err.Error())
	}
	return sb.String()
}
