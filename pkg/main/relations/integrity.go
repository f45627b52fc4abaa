package relations

import (
	"fmt"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
)

// Problem describes a rule that can never match because an earlier rule in
// the same table already covers its whole source range. First-match-wins
// means authoring order matters; a catch-all listed before a specific rule
// silently produces wrong answers, so tables are linted at load time.
type Problem struct {
	SeriesID   int64
	RuleIndex  int
	ShadowedBy int
}

// String implements fmt.Stringer.
func (p Problem) String() string {
	return fmt.Sprintf("series %d: rule %d unreachable, shadowed by rule %d", p.SeriesID, p.RuleIndex, p.ShadowedBy)
}

// CheckTable reports rules shadowed by earlier rules. The lint never fails
// the load; resolution keeps the documented first-match-wins behavior either
// way.
func CheckTable(doc *Document) []Problem {
	if doc == nil {
		return nil
	}
	var problems []Problem
	for seriesID, rules := range doc.Relations {
		for j := 1; j < len(rules); j++ {
			for i := 0; i < j; i++ {
				if covers(rules[i].Source, rules[j].Source) {
					problems = append(problems, Problem{SeriesID: seriesID, RuleIndex: j, ShadowedBy: i})
					break
				}
			}
		}
	}
	return problems
}

// LogProblems writes every lint finding as a warning.
func LogProblems(problems []Problem) {
	for idx := range problems {
		logger.LogDynamicany(logger.StrWarn, "unreachable relation rule",
			"series", problems[idx].SeriesID,
			"rule", problems[idx].RuleIndex,
			"shadowed_by", problems[idx].ShadowedBy)
	}
}

// covers reports whether a fully contains b.
func covers(a, b Range) bool {
	return a.Begin() <= b.Begin() && a.End() >= b.End()
}
