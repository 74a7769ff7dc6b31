package contract

import "fmt"

type GapKind string

const (
	// GapUnresolvedRef marks a $ref whose name is not in the registry. The
	// schema was treated as empty.
	GapUnresolvedRef GapKind = "unresolved-ref"
	// GapUnsupportedType marks a property left out of a synthesized payload.
	GapUnsupportedType GapKind = "unsupported-type"
)

// Gap records a place where synthesis fell back instead of failing.
type Gap struct {
	Kind     GapKind `json:"kind"`
	Name     string  `json:"name"`
	Detail   string  `json:"detail,omitempty"`
	Location string  `json:"location,omitempty"`
}

func (g Gap) String() string {
	if g.Location == "" {
		return fmt.Sprintf("%s %s: %s", g.Kind, g.Name, g.Detail)
	}
	return fmt.Sprintf("%s %s at %s: %s", g.Kind, g.Name, g.Location, g.Detail)
}

func withLocation(gaps []Gap, location string) []Gap {
	for i := range gaps {
		if gaps[i].Location == "" {
			gaps[i].Location = location
		}
	}
	return gaps
}
