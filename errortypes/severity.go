package errortypes

// Severity tells whether an error stops the response or only degrades it.
type Severity int

const (
	SeverityUnknown Severity = iota
	// SeverityFatal errors drop whatever the failing step would have produced.
	SeverityFatal
	// SeverityWarning errors are reported in bidresponse.ext.warnings and the response goes on.
	SeverityWarning
)

// Errors which don't implement Coder are treated as fatal.
func isFatal(err error) bool {
	c, ok := err.(Coder)
	return !ok || c.Severity() == SeverityFatal
}

// IsWarning is true only for errors coded with SeverityWarning, which in practice means *Warning.
func IsWarning(err error) bool {
	c, ok := err.(Coder)
	return ok && c.Severity() == SeverityWarning
}

func ContainsFatalError(errs []error) bool {
	for _, err := range errs {
		if isFatal(err) {
			return true
		}
	}
	return false
}

// FatalOnly keeps the fatal errors of errs, in order.
func FatalOnly(errs []error) []error {
	fatal, _ := Split(errs)
	return fatal
}

// Split separates warnings from everything else. Both halves keep the order of errs.
func Split(errs []error) (fatal []error, warnings []error) {
	fatal = make([]error, 0, len(errs))
	for _, err := range errs {
		if IsWarning(err) {
			warnings = append(warnings, err)
			continue
		}
		fatal = append(fatal, err)
	}
	return fatal, warnings
}
