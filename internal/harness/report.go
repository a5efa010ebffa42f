package harness

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Report writes a human readable summary of result to w. Colors follow
// fatih/color's terminal detection.
func Report(w io.Writer, result *Result) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if result == nil {
		fmt.Fprintf(w, "%s no result\n", red("FAIL"))
		return
	}

	exp := result.Expected
	if result.Passed {
		fmt.Fprintf(w, "%s %s %s", green("PASS"), exp.Method, exp.Path)
		if result.Actual != nil {
			fmt.Fprintf(w, " %s", cyan(fmt.Sprintf("(%dms)", result.Actual.Duration.Milliseconds())))
		}
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "%s %s %s\n", red("FAIL"), exp.Method, exp.Path)
	fmt.Fprintf(w, "  %s\n", result.Message)
	fmt.Fprintf(w, "  Expected: %d %q\n", exp.Status, exp.Body)
	if result.Actual != nil {
		fmt.Fprintf(w, "  Actual:   %d %q\n", result.Actual.StatusCode, result.Actual.Body)
	}
	if result.Diff != "" {
		fmt.Fprintf(w, "\n%s", result.Diff)
	}
}
