package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Compare checks status and body of actual against exp, byte for byte.
func Compare(exp Expectation, actual *Response) *Result {
	result := &Result{Expected: exp, Actual: actual}
	if actual == nil {
		result.Message = "no response"
		return result
	}

	var problems []string
	if actual.StatusCode != exp.Status {
		problems = append(problems, fmt.Sprintf("status: expected %d, got %d", exp.Status, actual.StatusCode))
	}
	switch {
	case actual.Truncated:
		problems = append(problems, fmt.Sprintf("body: exceeds %d bytes", maxBodyBytes))
	case !bytes.Equal(actual.Body, []byte(exp.Body)):
		problems = append(problems, fmt.Sprintf("body: expected %q (%d bytes), got %q (%d bytes)",
			exp.Body, len(exp.Body), actual.Body, len(actual.Body)))
		result.Diff = bodyDiff(exp.Body, string(actual.Body))
	}

	if len(problems) == 0 {
		result.Passed = true
		result.Message = fmt.Sprintf("%s %s returned %d with the expected body", exp.Method, exp.Path, actual.StatusCode)
		return result
	}
	result.Message = strings.Join(problems, "; ")
	return result
}

// bodyDiff renders a unified diff. Lines are quoted so that differences in
// whitespace and trailing newlines stay visible.
func bodyDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        quoteLines(expected),
		B:        quoteLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

func quoteLines(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = fmt.Sprintf("%q\n", part)
	}
	return lines
}
