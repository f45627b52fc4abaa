// rename compiles the search/replace pattern language, including embedded
// auto-incrementing counter directives, into a verified batch rename plan.
package rename

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/pkg/errors"
)

// Scope selects which portion of a filename the rule transforms.
type Scope string

const (
	ScopeFullName      Scope = "full_name"
	ScopeStemOnly      Scope = "stem"
	ScopeExtensionOnly Scope = "extension"
)

// CaseTransform is applied to the substituted portion after counters
// are resolved.
type CaseTransform string

const (
	CaseNone  CaseTransform = "none"
	CaseLower CaseTransform = "lower"
	CaseUpper CaseTransform = "upper"
)

// PlanEntry is one actual rename. Plans never contain no-ops.
type PlanEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PreviewEntry is the side-by-side view of one selected file, including
// the ones the rule leaves untouched.
type PreviewEntry struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Changed bool   `json:"changed"`
}

// counter is one parsed {start=, increment=, padding=} directive.
type counter struct {
	start     int
	increment int
	padding   int
}

// Rule is a compiled search/replace rule. Compilation is pure; a Rule can
// be applied to any file set any number of times.
type Rule struct {
	re          *regexp.Regexp // nil for the empty-search identity rule
	replacement string         // template with directives already swapped for placeholders
	counters    []counter
	matchAll    bool
}

// counterDirectiveRe matches one directive occurrence in the replacement
// template. Values are parsed leniently afterwards; a malformed number
// falls back to that key's default.
var counterDirectiveRe = regexp.MustCompile(
	`\{\s*(?:(?:start|increment|padding)\s*=\s*[^,{}]*?\s*(?:,\s*(?:start|increment|padding)\s*=\s*[^,{}]*?\s*)*)?\}`,
)

// Compile builds a Rule. An invalid regular expression is the only
// failure; the returned error wraps logger.ErrInvalidPattern so callers
// can surface it as a search-field validation error.
func Compile(search string, isRegex, caseSensitive, matchAll bool, replacement string) (*Rule, error) {
	rule := &Rule{matchAll: matchAll}
	rule.replacement, rule.counters = compileReplacement(replacement)

	if search == "" {
		return rule, nil
	}

	pattern := search
	if !isRegex {
		pattern = regexp.QuoteMeta(search)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(logger.ErrInvalidPattern, "compile search %q: %v", search, err)
	}
	rule.re = re
	return rule, nil
}

// compileReplacement pre-scans the template for counter directives. Each
// textual occurrence gets a slot in template order and is swapped for an
// internal placeholder before the pattern engine ever sees the template,
// so the directive syntax cannot itself be matched or replaced.
func compileReplacement(template string) (string, []counter) {
	matches := counterDirectiveRe.FindAllStringIndex(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	var (
		sb       strings.Builder
		counters []counter
		prev     int
	)
	for slot, loc := range matches {
		sb.WriteString(template[prev:loc[0]])
		sb.WriteString(placeholder(slot))
		counters = append(counters, parseCounter(template[loc[0]:loc[1]]))
		prev = loc[1]
	}
	sb.WriteString(template[prev:])
	return sb.String(), counters
}

// placeholder builds the internal slot marker. NUL bytes never occur in
// filenames or templates, so the marker cannot collide with user input.
func placeholder(slot int) string {
	return "\x00" + strconv.Itoa(slot) + "\x00"
}

func parseCounter(directive string) counter {
	c := counter{start: 1, increment: 1, padding: 0}
	body := strings.Trim(directive, "{}")
	for _, part := range strings.Split(body, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "start":
			c.start = n
		case "increment":
			c.increment = n
		case "padding":
			c.padding = n
		}
	}
	return c
}

// Apply runs the rule over the file set and returns the plan, containing
// only files whose final name differs from the original.
func (r *Rule) Apply(files []string, scope Scope, transform CaseTransform) []PlanEntry {
	preview := r.Preview(files, scope, transform)
	plan := make([]PlanEntry, 0, len(preview))
	for idx := range preview {
		if preview[idx].Changed {
			plan = append(plan, PlanEntry{From: preview[idx].From, To: preview[idx].To})
		}
	}
	return plan
}

// Preview computes the side-by-side view for every selected file. The
// counter index advances once per file whose scoped portion the pattern
// substitution actually changed, never for no-op files.
func (r *Rule) Preview(files []string, scope Scope, transform CaseTransform) []PreviewEntry {
	out := make([]PreviewEntry, 0, len(files))
	fileIndex := 0

	for _, file := range files {
		portion, rest, ok := splitScope(file, scope)
		if !ok {
			out = append(out, PreviewEntry{From: file, To: file})
			continue
		}

		substituted := r.substitute(portion)
		if substituted != portion {
			substituted = r.resolveCounters(substituted, fileIndex)
			fileIndex++
		}
		substituted = applyCase(substituted, transform)

		to := recombine(substituted, rest, scope)
		out = append(out, PreviewEntry{From: file, To: to, Changed: to != file})
	}
	return out
}

// substitute applies the search pattern to one scoped portion. The empty
// search rule is the identity.
func (r *Rule) substitute(portion string) string {
	if r.re == nil {
		return portion
	}
	if r.matchAll {
		return r.re.ReplaceAllString(portion, r.replacement)
	}

	loc := r.re.FindStringSubmatchIndex(portion)
	if loc == nil {
		return portion
	}
	expanded := r.re.ExpandString(nil, r.replacement, portion, loc)
	return portion[:loc[0]] + string(expanded) + portion[loc[1]:]
}

// resolveCounters replaces every slot placeholder with its value for the
// given file index, zero padded when the directive asks for it.
func (r *Rule) resolveCounters(s string, fileIndex int) string {
	for slot, c := range r.counters {
		value := c.start + fileIndex*c.increment
		var rendered string
		if c.padding > 0 {
			rendered = fmt.Sprintf("%0*d", c.padding, value)
		} else {
			rendered = strconv.Itoa(value)
		}
		s = strings.ReplaceAll(s, placeholder(slot), rendered)
	}
	return s
}

// splitScope returns the portion the rule operates on plus the untouched
// remainder. A file without an extension is left alone under the two
// split scopes.
func splitScope(file string, scope Scope) (portion, rest string, ok bool) {
	switch scope {
	case ScopeStemOnly:
		stem, ext, hasExt := logger.SplitExtension(file)
		if !hasExt {
			return "", "", false
		}
		return stem, ext, true
	case ScopeExtensionOnly:
		stem, ext, hasExt := logger.SplitExtension(file)
		if !hasExt {
			return "", "", false
		}
		return ext, stem, true
	default:
		return file, "", true
	}
}

func recombine(portion, rest string, scope Scope) string {
	switch scope {
	case ScopeStemOnly:
		return portion + "." + rest
	case ScopeExtensionOnly:
		return rest + "." + portion
	default:
		return portion
	}
}

func applyCase(s string, transform CaseTransform) string {
	switch transform {
	case CaseLower:
		return strings.ToLower(s)
	case CaseUpper:
		return strings.ToUpper(s)
	}
	return s
}
