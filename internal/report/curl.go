package report

import (
	"strings"

	"github.com/alessio/shellescape"

	catalog "apitest-backend"
)

// Curl renders a shell command that replays the request of a test case.
func Curl(tc catalog.TestCase) string {
	args := []string{"curl", "-sS", "-X", tc.Method}
	if tc.Payload != nil {
		args = append(args, "-H", "Content-Type: application/json", "--data", string(tc.Payload))
	}
	args = append(args, tc.URL)
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellescape.Quote(a)
	}
	return strings.Join(quoted, " ")
}
