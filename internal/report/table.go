package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	catalog "apitest-backend"
)

// PrintCatalog writes the test cases as an aligned table.
func PrintCatalog(w io.Writer, tests []catalog.TestCase) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMETHOD\tURL\tSTATUS\tDEPENDS ON\tPAYLOAD\tEXPECTED")
	for _, tc := range tests {
		dep := "-"
		if tc.DependencyID != nil {
			dep = fmt.Sprint(*tc.DependencyID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			tc.ID, tc.Method, tc.URL, tc.ExpectedStatusCode, dep, jsonCell(tc.Payload), jsonCell(tc.ExpectedResponse))
	}
	return tw.Flush()
}

func jsonCell(raw []byte) string {
	if len(raw) == 0 {
		return "-"
	}
	const width = 60
	if len(raw) > width {
		return string(raw[:width-3]) + "..."
	}
	return string(raw)
}
