package schema

import (
	"fmt"
	"strings"

	"github.com/manyblack/studio/pkg/domain"
)

// Severity ranks a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError represents a single field validation issue.
type ValidationError struct {
	Key      string   `json:"field"`  // Dotted field path
	Reason   string   `json:"reason"` // Human-readable reason for failure
	Value    any      `json:"-"`      // The value that failed validation
	Severity Severity `json:"severity"`
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %v)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
// It matches domain.ErrInvalid with errors.Is.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Is reports the aggregate as an invalid record.
func (e *AggregateError) Is(target error) bool {
	return target == domain.ErrInvalid
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}

// Report is the ordered outcome of a validation run.
type Report struct {
	Issues []*ValidationError `json:"issues"`
}

func (r *Report) errorf(key string, value any, format string, args ...any) {
	r.Issues = append(r.Issues, &ValidationError{
		Key: key, Reason: fmt.Sprintf(format, args...), Value: value, Severity: SeverityError,
	})
}

func (r *Report) warnf(key string, format string, args ...any) {
	r.Issues = append(r.Issues, &ValidationError{
		Key: key, Reason: fmt.Sprintf(format, args...), Severity: SeverityWarning,
	})
}

// Merge appends the issues of another report.
func (r *Report) Merge(other Report) {
	r.Issues = append(r.Issues, other.Issues...)
}

// MergeAt appends the issues of another report with their keys nested under prefix,
// e.g. "[2]" turns "output.text" into "[2].output.text".
func (r *Report) MergeAt(prefix string, other Report) {
	for _, issue := range other.Issues {
		nested := *issue
		nested.Key = prefix + "." + issue.Key
		r.Issues = append(r.Issues, &nested)
	}
}

// Errors returns the blocking issues.
func (r Report) Errors() []*ValidationError { return r.filter(SeverityError) }

// Warnings returns the non-blocking issues.
func (r Report) Warnings() []*ValidationError { return r.filter(SeverityWarning) }

func (r Report) filter(sev Severity) []*ValidationError {
	var out []*ValidationError
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// OK reports whether the record can be submitted.
func (r Report) OK() bool { return len(r.Errors()) == 0 }

// Err returns an *AggregateError with the blocking issues, or nil.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return &AggregateError{Errors: out}
}

// ByField groups issue reasons by field path, for inline rendering.
func (r Report) ByField() map[string][]string {
	out := make(map[string][]string)
	for _, issue := range r.Issues {
		out[issue.Key] = append(out[issue.Key], issue.Reason)
	}
	return out
}

// Has reports whether an issue of any severity exists for the field.
func (r Report) Has(key string) bool {
	for _, issue := range r.Issues {
		if issue.Key == key {
			return true
		}
	}
	return false
}
