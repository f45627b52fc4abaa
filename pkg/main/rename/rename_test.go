package rename

import (
	"errors"
	"testing"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
)

func mustCompile(t *testing.T, search string, isRegex, caseSensitive, matchAll bool, replacement string) *Rule {
	t.Helper()
	rule, err := Compile(search, isRegex, caseSensitive, matchAll, replacement)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", search, err)
	}
	return rule
}

func TestCompileInvalidRegex(t *testing.T) {
	_, err := Compile("(", true, false, false, "x")
	if err == nil {
		t.Fatal("Compile(\"(\") error = nil; want validation error")
	}
	if !errors.Is(err, logger.ErrInvalidPattern) {
		t.Errorf("error = %v; want wrap of ErrInvalidPattern", err)
	}
}

func TestEmptySearchProducesEmptyPlan(t *testing.T) {
	rule := mustCompile(t, "", false, false, true, "whatever")
	files := []string{"a.srt", "b.srt", "c with spaces.ass"}

	plan := rule.Apply(files, ScopeFullName, CaseNone)
	if len(plan) != 0 {
		t.Errorf("plan = %v; want empty (identity transform)", plan)
	}

	preview := rule.Preview(files, ScopeFullName, CaseNone)
	if len(preview) != len(files) {
		t.Fatalf("preview length = %d; want %d", len(preview), len(files))
	}
	for idx := range preview {
		if preview[idx].To != files[idx] || preview[idx].Changed {
			t.Errorf("preview[%d] = %+v; want unchanged", idx, preview[idx])
		}
	}
}

func TestEmptySearchStillAppliesCaseTransform(t *testing.T) {
	rule := mustCompile(t, "", false, false, true, "")
	plan := rule.Apply([]string{"Show Title - 01.srt"}, ScopeStemOnly, CaseLower)
	if len(plan) != 1 || plan[0].To != "show title - 01.srt" {
		t.Errorf("plan = %v; want lowered stem with extension untouched", plan)
	}
}

func TestNoOpEntriesExcluded(t *testing.T) {
	rule := mustCompile(t, "Show", false, true, true, "Show")
	plan := rule.Apply([]string{"Show - 01.srt", "Show - 02.srt"}, ScopeFullName, CaseNone)
	if len(plan) != 0 {
		t.Errorf("plan = %v; want empty (replacement equals match)", plan)
	}
}

func TestCounterMonotonicity(t *testing.T) {
	rule := mustCompile(t, `ep\d+`, true, false, true, "Episode {start=5, increment=2, padding=2}")
	files := []string{"ep1.srt", "ep2.srt", "ep3.srt"}

	plan := rule.Apply(files, ScopeStemOnly, CaseNone)
	want := []string{"Episode 05.srt", "Episode 07.srt", "Episode 09.srt"}
	if len(plan) != len(want) {
		t.Fatalf("plan length = %d; want %d", len(plan), len(want))
	}
	for idx := range plan {
		if plan[idx].To != want[idx] {
			t.Errorf("plan[%d].To = %q; want %q", idx, plan[idx].To, want[idx])
		}
	}
}

func TestCounterSkipsNoOpFiles(t *testing.T) {
	// The middle file never matches, so it must not consume a counter
	// value.
	rule := mustCompile(t, `ep\d+`, true, false, true, "E{start=1}")
	files := []string{"ep1.srt", "unrelated.srt", "ep3.srt"}

	plan := rule.Apply(files, ScopeStemOnly, CaseNone)
	if len(plan) != 2 {
		t.Fatalf("plan length = %d; want 2", len(plan))
	}
	if plan[0].To != "E1.srt" || plan[1].To != "E2.srt" {
		t.Errorf("plan = %v; want E1.srt then E2.srt", plan)
	}
}

func TestCounterDefaultsAndSubsets(t *testing.T) {
	tests := []struct {
		name        string
		replacement string
		want        []string
	}{
		{"all defaults", "{}", []string{"1.srt", "2.srt"}},
		{"start only", "{start=9}", []string{"9.srt", "10.srt"}},
		{"padding only", "{padding=3}", []string{"001.srt", "002.srt"}},
		{"reordered keys", "{padding=2, start=7}", []string{"07.srt", "08.srt"}},
		{"malformed value falls back", "{start=abc, increment=2}", []string{"1.srt", "3.srt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustCompile(t, `ep\d+`, true, false, true, tt.replacement)
			plan := rule.Apply([]string{"ep1.srt", "ep2.srt"}, ScopeStemOnly, CaseNone)
			if len(plan) != len(tt.want) {
				t.Fatalf("plan length = %d; want %d", len(plan), len(tt.want))
			}
			for idx := range plan {
				if plan[idx].To != tt.want[idx] {
					t.Errorf("plan[%d].To = %q; want %q", idx, plan[idx].To, tt.want[idx])
				}
			}
		})
	}
}

func TestCounterDirectiveNotMatchedBySearch(t *testing.T) {
	// A search pattern that would match inside the directive text must
	// never touch it; the directive is swapped out before matching.
	rule := mustCompile(t, `\d+`, true, false, true, "{start=10}")
	plan := rule.Apply([]string{"ep42.srt"}, ScopeStemOnly, CaseNone)
	if len(plan) != 1 || plan[0].To != "ep10.srt" {
		t.Errorf("plan = %v; want single entry ep10.srt", plan)
	}
}

func TestExtensionOnlyScope(t *testing.T) {
	rule := mustCompile(t, "srt", false, false, true, "ass")
	files := []string{"Show Title - 01.srt", "Show Title - 02.srt", "readme"}

	plan := rule.Apply(files, ScopeExtensionOnly, CaseNone)
	if len(plan) != 2 {
		t.Fatalf("plan length = %d; want 2", len(plan))
	}
	if plan[0].To != "Show Title - 01.ass" || plan[1].To != "Show Title - 02.ass" {
		t.Errorf("plan = %v; want .ass extensions with stems untouched", plan)
	}
}

func TestScopeSkipsFilesWithoutExtension(t *testing.T) {
	rule := mustCompile(t, "readme", false, false, true, "notes")
	for _, scope := range []Scope{ScopeStemOnly, ScopeExtensionOnly} {
		plan := rule.Apply([]string{"readme"}, scope, CaseNone)
		if len(plan) != 0 {
			t.Errorf("scope %s: plan = %v; want empty for extensionless file", scope, plan)
		}
	}
}

func TestFirstMatchOnly(t *testing.T) {
	all := mustCompile(t, "a", false, true, true, "b")
	first := mustCompile(t, "a", false, true, false, "b")

	planAll := all.Apply([]string{"banana.srt"}, ScopeStemOnly, CaseNone)
	if len(planAll) != 1 || planAll[0].To != "bbnbnb.srt" {
		t.Errorf("matchAll plan = %v; want bbnbnb.srt", planAll)
	}

	planFirst := first.Apply([]string{"banana.srt"}, ScopeStemOnly, CaseNone)
	if len(planFirst) != 1 || planFirst[0].To != "bbnana.srt" {
		t.Errorf("first-match plan = %v; want bbnana.srt", planFirst)
	}
}

func TestCaseInsensitiveByDefault(t *testing.T) {
	rule := mustCompile(t, "show", false, false, true, "series")
	plan := rule.Apply([]string{"SHOW - 01.srt"}, ScopeStemOnly, CaseNone)
	if len(plan) != 1 || plan[0].To != "series - 01.srt" {
		t.Errorf("plan = %v; want case-insensitive match", plan)
	}

	sensitive := mustCompile(t, "show", false, true, true, "series")
	plan = sensitive.Apply([]string{"SHOW - 01.srt"}, ScopeStemOnly, CaseNone)
	if len(plan) != 0 {
		t.Errorf("plan = %v; want no match when case sensitive", plan)
	}
}

func TestRegexCaptureGroups(t *testing.T) {
	rule := mustCompile(t, `(\d+)x(\d+)`, true, false, true, "S${1}E${2}")
	plan := rule.Apply([]string{"Show 1x05.srt"}, ScopeStemOnly, CaseNone)
	if len(plan) != 1 || plan[0].To != "Show S1E05.srt" {
		t.Errorf("plan = %v; want Show S1E05.srt", plan)
	}
}

func TestCaseTransformOnSubstitutedPortionOnly(t *testing.T) {
	rule := mustCompile(t, "title", false, false, true, "title")
	plan := rule.Apply([]string{"Show Title - 01.SRT"}, ScopeStemOnly, CaseUpper)
	if len(plan) != 1 || plan[0].To != "SHOW TITLE - 01.SRT" {
		t.Errorf("plan = %v; want upper stem, untouched extension", plan)
	}
}

func TestApplyIsIdempotentOnOwnOutput(t *testing.T) {
	rule := mustCompile(t, "old", false, false, true, "new")
	plan := rule.Apply([]string{"old name.srt"}, ScopeFullName, CaseNone)
	if len(plan) != 1 {
		t.Fatalf("plan length = %d; want 1", len(plan))
	}
	again := rule.Apply([]string{plan[0].To}, ScopeFullName, CaseNone)
	if len(again) != 0 {
		t.Errorf("second application plan = %v; want empty", again)
	}
}
