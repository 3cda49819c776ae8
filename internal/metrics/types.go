// Package metrics derives objective measurements from a candidate's
// artifact directory: structural counts from a static pass over the
// sources, plus test results from a sandboxed run of the candidate's
// own suite.
package metrics

import "fmt"

type LintStatus string

const (
	LintPassed  LintStatus = "passed"
	LintFailed  LintStatus = "failed"
	LintUnknown LintStatus = "unknown"
)

// MetricSet holds the measurements for one candidate. Optional fields are
// pointers; nil means the measurement was not obtainable for this
// candidate, which is distinct from a measured zero.
type MetricSet struct {
	TestCount            *int     `json:"test_count,omitempty"`
	TestPassRate         *float64 `json:"test_pass_rate,omitempty"`
	CyclomaticComplexity *float64 `json:"cyclomatic_complexity,omitempty"`
	TotalLines           *int     `json:"total_lines,omitempty"`
	FilesAnalyzed        *int     `json:"files_analyzed,omitempty"`
	FunctionsCount       *int     `json:"functions_count,omitempty"`
	ClassesCount         *int     `json:"classes_count,omitempty"`
	PackagingExists      bool     `json:"packaging_exists"`
	PackagingSize        string   `json:"packaging_size,omitempty"`
	LintStatus           LintStatus `json:"lint_status"`
}

// Tests reports the discovered test count, zero when none were found or
// the count was not measurable.
func (m *MetricSet) Tests() int {
	if m == nil || m.TestCount == nil {
		return 0
	}
	return *m.TestCount
}

type ErrorKind int

const (
	// KindNotFound: the artifact directory is missing or empty.
	KindNotFound ErrorKind = iota
	// KindUnrunnable: the candidate's tests could not be executed at all.
	// Static measurements may still be present on Partial.
	KindUnrunnable
)

// ExtractionError is the per-cell failure the evaluator absorbs; it never
// crosses the batch boundary.
type ExtractionError struct {
	Kind    ErrorKind
	Path    string
	Reason  string
	Partial *MetricSet
}

func (e *ExtractionError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("artifact not found: %s", e.Path)
	default:
		return fmt.Sprintf("tests unrunnable in %s: %s", e.Path, e.Reason)
	}
}

func IsNotFound(err error) bool {
	ee, ok := err.(*ExtractionError)
	return ok && ee.Kind == KindNotFound
}

func IsUnrunnable(err error) bool {
	ee, ok := err.(*ExtractionError)
	return ok && ee.Kind == KindUnrunnable
}
