// episode derives a canonical episode spec from parsed filename elements.
package episode

import (
	"strconv"

	"github.com/goccy/go-json"
	"github.com/nekomata-dev/subdex/pkg/main/parser"
)

// SpecKind is the tag of the Spec union.
type SpecKind uint8

const (
	// Absent means the filename carries no usable episode number.
	Absent SpecKind = iota
	// Single is one episode number.
	Single
	// Range is an inclusive episode span (batch file).
	Range
)

// Spec is the normalized episode information of one file. Start and End are
// only meaningful for the kinds that carry them: Single uses Start, Range
// uses both with Start <= End.
type Spec struct {
	Kind  SpecKind
	Start int
	End   int
}

// AbsentSpec is the zero Spec.
var AbsentSpec = Spec{}

// NewSingle builds a Single spec.
func NewSingle(n int) Spec {
	return Spec{Kind: Single, Start: n, End: n}
}

// NewRange builds a Range spec, swapping reversed bounds.
func NewRange(start, end int) Spec {
	if start > end {
		start, end = end, start
	}
	return Spec{Kind: Range, Start: start, End: end}
}

// Normalize extracts the canonical episode spec from parser output. Parser
// output is trusted but never extrapolated: non-numeric or partial values
// normalize to Absent instead of raising.
func Normalize(elements []parser.Element) Spec {
	var values []string
	for idx := range elements {
		if elements[idx].Kind == parser.ElementEpisode {
			values = append(values, elements[idx].Value)
		}
	}

	switch len(values) {
	case 0:
		return AbsentSpec
	case 1:
		n, ok := parseEpisodeNumber(values[0])
		if !ok {
			return AbsentSpec
		}
		return NewSingle(n)
	case 2:
		start, ok := parseEpisodeNumber(values[0])
		if !ok {
			return AbsentSpec
		}
		end, ok := parseEpisodeNumber(values[1])
		if !ok {
			return AbsentSpec
		}
		return NewRange(start, end)
	default:
		// More than two episode values is ambiguous parser output.
		return AbsentSpec
	}
}

// NormalizeAlt extracts the alternate-numbering spec (episode_alt elements),
// under the same rules as Normalize.
func NormalizeAlt(elements []parser.Element) Spec {
	var alt []parser.Element
	for idx := range elements {
		if elements[idx].Kind == parser.ElementEpisodeAlt {
			alt = append(alt, parser.Element{Kind: parser.ElementEpisode, Value: elements[idx].Value})
		}
	}
	return Normalize(alt)
}

// Contains reports whether episode n falls inside the spec.
func (s Spec) Contains(n int) bool {
	switch s.Kind {
	case Absent:
		return false
	case Single:
		return s.Start == n
	case Range:
		return n >= s.Start && n <= s.End
	}
	return false
}

// Episodes lists every number covered by the spec, empty for Absent.
func (s Spec) Episodes() []int {
	switch s.Kind {
	case Absent:
		return nil
	case Single:
		return []int{s.Start}
	case Range:
		out := make([]int, 0, s.End-s.Start+1)
		for n := s.Start; n <= s.End; n++ {
			out = append(out, n)
		}
		return out
	}
	return nil
}

// specJSON is the wire shape of a Spec.
type specJSON struct {
	Type   string `json:"type"`
	Number *int   `json:"number,omitempty"`
	Begin  *int   `json:"begin,omitempty"`
	End    *int   `json:"end,omitempty"`
}

func (s Spec) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case Single:
		n := s.Start
		return json.Marshal(specJSON{Type: "single", Number: &n})
	case Range:
		begin, end := s.Start, s.End
		return json.Marshal(specJSON{Type: "range", Begin: &begin, End: &end})
	}
	return json.Marshal(specJSON{Type: "absent"})
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw specJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "single":
		if raw.Number != nil {
			*s = NewSingle(*raw.Number)
			return nil
		}
		*s = AbsentSpec
	case "range":
		if raw.Begin != nil && raw.End != nil {
			*s = NewRange(*raw.Begin, *raw.End)
			return nil
		}
		*s = AbsentSpec
	default:
		*s = AbsentSpec
	}
	return nil
}

func parseEpisodeNumber(value string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
