package synthmark

import (
	"fmt"
	"strings"
)

// Result codes. The process exit code of the synthmark command equals the
// result code of the harness run.
const (
	// ResultCodeOK indicates the benchmark completed and produced a valid
	// measurement, including degenerate outcomes such as saturation.
	ResultCodeOK = 0

	// ResultCodeFailure indicates a host-level failure aborted the run.
	ResultCodeFailure = 1
)

// Result accumulates the structured outcome of one harness run: a result
// code and an ordered sequence of report lines. The caller creates it,
// exactly one harness fills it during RunTest, and it must be treated as
// immutable once the run completes.
type Result struct {
	code  int
	lines []string
}

// NewResult returns an empty Result with code ResultCodeOK.
func NewResult() *Result {
	return &Result{}
}

// SetResultCode records the outcome code.
func (r *Result) SetResultCode(code int) {
	r.code = code
}

// ResultCode returns the recorded outcome code.
func (r *Result) ResultCode() int {
	return r.code
}

// AppendMessage adds one formatted report line.
func (r *Result) AppendMessage(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// ResultMessage returns the report lines joined with trailing newlines.
func (r *Result) ResultMessage() string {
	if len(r.lines) == 0 {
		return ""
	}
	return strings.Join(r.lines, "\n") + "\n"
}
