package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	catalog "apitest-backend"
	"apitest-backend/internal/executor"
)

type Console struct {
	Out     io.Writer
	Verbose bool

	pass *color.Color
	fail *color.Color
	errc *color.Color
	dim  *color.Color
}

// NewConsole writes colored output to out unless noColor is set.
func NewConsole(out io.Writer, noColor bool) *Console {
	c := &Console{
		Out:  out,
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		errc: color.New(color.FgYellow),
		dim:  color.New(color.Faint),
	}
	if noColor {
		for _, col := range []*color.Color{c.pass, c.fail, c.errc, c.dim} {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) Print(outcomes []executor.Outcome, summary executor.Summary) {
	for _, o := range outcomes {
		c.printOutcome(o)
	}
	c.printSummary(summary)
}

func (c *Console) printOutcome(o executor.Outcome) {
	tc, res := o.Test, o.Result
	line := fmt.Sprintf("%s %s (#%d, %dms)", tc.Method, tc.URL, tc.ID, res.DurationMS)
	switch res.Verdict {
	case catalog.VerdictPassed:
		fmt.Fprintf(c.Out, "%s %s\n", c.pass.Sprint("✓"), line)
		return
	case catalog.VerdictFailed:
		fmt.Fprintf(c.Out, "%s %s\n", c.fail.Sprint("✗"), line)
		if res.Diff != "" {
			fmt.Fprintf(c.Out, "%s\n", indent(res.Diff, "    "))
		}
	default:
		fmt.Fprintf(c.Out, "%s %s\n", c.errc.Sprint("!"), line)
		fmt.Fprintf(c.Out, "    error: %s\n", res.Error)
	}
	if c.Verbose {
		fmt.Fprintf(c.Out, "    body: %s\n", string(res.ActualResponse))
	}
	fmt.Fprintf(c.Out, "    %s\n", c.dim.Sprint(Curl(tc)))
}

func (c *Console) printSummary(s executor.Summary) {
	parts := []string{
		c.pass.Sprintf("%d passed", s.Passed),
		c.fail.Sprintf("%d failed", s.Failed),
		c.errc.Sprintf("%d errored", s.Errored),
	}
	fmt.Fprintf(c.Out, "\n%d tests: %s in %dms\n", s.Total, strings.Join(parts, ", "), s.DurationMS)
	if s.Cancelled {
		fmt.Fprintln(c.Out, c.errc.Sprint("run cancelled before all tests executed"))
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
