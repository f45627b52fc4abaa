// parser turns release filenames into an ordered list of typed elements.
package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
)

// ElementKind identifies what a parsed element describes.
type ElementKind uint8

const (
	ElementTitle ElementKind = iota
	ElementEpisode
	ElementEpisodeAlt
	ElementSeason
	ElementReleaseGroup
	ElementVideoTerm
	ElementAudioTerm
	ElementChecksum
	ElementExtension
	ElementLanguage
	ElementSubtitles
	ElementSource
	ElementResolution
	ElementVolume
	ElementYear
	ElementDate
	ElementOther
)

// String returns the canonical name for an element kind.
func (k ElementKind) String() string {
	switch k {
	case ElementTitle:
		return "title"
	case ElementEpisode:
		return "episode"
	case ElementEpisodeAlt:
		return "episode_alt"
	case ElementSeason:
		return "season"
	case ElementReleaseGroup:
		return "release_group"
	case ElementVideoTerm:
		return "video_term"
	case ElementAudioTerm:
		return "audio_term"
	case ElementChecksum:
		return "checksum"
	case ElementExtension:
		return "extension"
	case ElementLanguage:
		return "language"
	case ElementSubtitles:
		return "subtitles"
	case ElementSource:
		return "source"
	case ElementResolution:
		return "resolution"
	case ElementVolume:
		return "volume"
	case ElementYear:
		return "year"
	case ElementDate:
		return "date"
	case ElementOther:
		return "other"
	}
	return "other"
}

// MarshalJSON emits the canonical kind name instead of the enum value.
func (k ElementKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Element is one typed token extracted from a filename. Episode elements may
// appear twice per filename (range: first=start, second=end).
type Element struct {
	Kind  ElementKind `json:"kind"`
	Value string      `json:"value"`
}

// Options toggles which element categories are extracted. Disabled categories
// still influence title carving but are not emitted.
type Options struct {
	Title        bool
	Episode      bool
	Season       bool
	Year         bool
	Date         bool
	Volume       bool
	Extension    bool
	ReleaseGroup bool
	Checksum     bool
	// Terms covers video/audio/source/resolution/language/subtitle keywords.
	Terms bool
}

// DefaultOptions enables every category.
func DefaultOptions() Options {
	return Options{
		Title:        true,
		Episode:      true,
		Season:       true,
		Year:         true,
		Date:         true,
		Volume:       true,
		Extension:    true,
		ReleaseGroup: true,
		Checksum:     true,
		Terms:        true,
	}
}

type regexpattern struct {
	name string
	// Use the last matching occurrence. E.g. Year.
	last bool
	re   *regexp.Regexp
	// groups lists the submatch indexes carrying values, in emit order.
	groups []int
}

var scanpatterns = []regexpattern{
	{"checksum", false, regexp.MustCompile(`\[([0-9A-Fa-f]{8})\]`), []int{1}},
	{"seasonepisode", false, regexp.MustCompile(`(?i)\bs(\d{1,2})[ ._-]?e(\d{1,3})(?:[-~]e?(\d{1,3}))?(?:\b|_)`), []int{1, 2, 3}},
	{"crossepisode", false, regexp.MustCompile(`\b(\d{1,2})x(\d{1,3})\b`), []int{1, 2}},
	{"episode", false, regexp.MustCompile(`(?i)(?:\b|_)(?:e|ep|episode)[ .]?(\d{1,4})(?:v\d+)?(?:\s?[-~]\s?(\d{1,4})(?:v\d+)?)?(?:\b|_)`), []int{1, 2}},
	{"dashnumber", false, regexp.MustCompile(`[-~][ _.](\d{1,4})(?:v\d+)?(?:\s?[-~]\s?(\d{1,4})(?:v\d+)?)?(?:[ _.([]|$)`), []int{1, 2}},
	{"date", false, regexp.MustCompile(`(?:\b|_)(\d{4}[._\- ]\d{1,2}[._\- ]\d{1,2})(?:\b|_)`), []int{1}},
	{"year", true, regexp.MustCompile(`(?:\b|_)((?:19|20)\d{2})(?:\b|_)`), []int{1}},
	{"season", false, regexp.MustCompile(`(?i)(?:\b|_)s(?:eason)?[ ._]?(\d{1,2})(?:\b|_)`), []int{1}},
	{"resolution", false, regexp.MustCompile(`(?i)(?:\b|_)(\d{3,4}[pi]|[248]k|\d{3,4}x\d{3,4})(?:\b|_)`), []int{1}},
	{"volume", false, regexp.MustCompile(`(?i)(?:\b|_)(?:vol|volume)[ ._]?(\d{1,3})(?:\b|_)`), []int{1}},
}

var altEpisodeRe = regexp.MustCompile(`^\s*\(?\s*(\d{1,4})\)`)
var groupBracketRe = regexp.MustCompile(`^\[([^\]]+)\]`)

// Keyword tables, matched word-bounded and case-insensitively on the cleaned
// name. Grouped the way the scan patterns are: one kind per table.
var keywordGroups = []struct {
	kind  ElementKind
	words []string
}{
	{ElementSource, []string{"bluray", "blu-ray", "bdrip", "brrip", "webrip", "web-dl", "webdl", "hdtv", "dvdrip", "dvd", "remux"}},
	{ElementVideoTerm, []string{"x264", "x265", "h264", "h265", "h 264", "h 265", "hevc", "avc", "av1", "10bit", "10-bit", "hi10p", "8bit"}},
	{ElementAudioTerm, []string{"flac", "aac", "opus", "mp3", "dts", "dd5 1", "ddp5 1", "truehd", "atmos", "dual audio"}},
	{ElementLanguage, []string{"japanese", "english", "spanish", "portuguese", "jpn", "eng", "spa", "por", "multi"}},
	{ElementSubtitles, []string{"subbed", "softsub", "softsubs", "hardsub", "hardsubs", "multisub", "multi-sub", "uncensored", "cc", "sdh", "forced"}},
}

// subtitle style extensions recognized by the directory host
var subtitleExtensions = map[string]bool{
	"srt": true, "ass": true, "ssa": true, "vtt": true, "sub": true,
	"sup": true, "idx": true, "pgs": true, "smi": true, "zip": true,
	"7z": true, "rar": true, "mkv": true, "mp4": true,
}

type located struct {
	pos int
	el  Element
}

// Parse maps a filename to its ordered element list. It never fails; an
// unparseable name simply yields fewer elements (worst case a single title).
func Parse(filename string, opts Options) []Element {
	var out []located

	stem := filename
	if ext, rest, found := splitKnownExtension(filename); found {
		stem = rest
		if opts.Extension {
			out = append(out, located{pos: len(stem), el: Element{Kind: ElementExtension, Value: ext}})
		}
	}

	cleanName := stem
	if strings.Contains(cleanName, "_") {
		cleanName = strings.Replace(cleanName, "_", " ", -1)
	}

	consumed := make([]bool, len(cleanName))
	titleStart := 0

	// Checksum has to win over the release group bracket, both live in [].
	for idx := range scanpatterns {
		if !patternEnabled(scanpatterns[idx].name, opts) {
			continue
		}
		loc := findSpan(scanpatterns[idx].re, cleanName, consumed, scanpatterns[idx].last)
		if loc == nil {
			continue
		}
		// A bare "- 2023" is far more likely a year than episode 2023.
		if scanpatterns[idx].name == "dashnumber" && looksLikeYear(group(cleanName, loc, 1)) {
			continue
		}
		markConsumed(consumed, loc[0], loc[1])
		emitPattern(&out, scanpatterns[idx], cleanName, loc, opts)
	}

	if g := groupBracketRe.FindStringSubmatchIndex(cleanName); g != nil && !consumed[g[0]] {
		markConsumed(consumed, g[0], g[1])
		titleStart = g[1]
		if opts.ReleaseGroup {
			out = append(out, located{pos: g[0], el: Element{Kind: ElementReleaseGroup, Value: cleanName[g[2]:g[3]]}})
		}
	}

	if opts.Terms {
		lower := lowerASCII(cleanName)
		for _, grp := range keywordGroups {
			for _, word := range grp.words {
				idx := indexWord(lower, word)
				if idx < 0 || consumed[idx] {
					continue
				}
				markConsumed(consumed, idx, idx+len(word))
				out = append(out, located{pos: idx, el: Element{Kind: grp.kind, Value: cleanName[idx : idx+len(word)]}})
			}
		}
	}

	if opts.Title {
		if title := carveTitle(cleanName, consumed, titleStart); title != "" {
			out = append(out, located{pos: titleStart, el: Element{Kind: ElementTitle, Value: title}})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	elements := make([]Element, 0, len(out))
	for idx := range out {
		elements = append(elements, out[idx].el)
	}
	return elements
}

func patternEnabled(name string, opts Options) bool {
	switch name {
	case "checksum":
		return opts.Checksum
	case "seasonepisode", "crossepisode":
		return opts.Episode || opts.Season
	case "episode", "dashnumber":
		return opts.Episode
	case "date":
		return opts.Date
	case "year":
		return opts.Year
	case "season":
		return opts.Season
	case "resolution":
		return opts.Terms
	case "volume":
		return opts.Volume
	}
	return false
}

// findSpan returns the submatch index slice of the first (or last) match that
// does not overlap an already consumed span.
func findSpan(re *regexp.Regexp, s string, consumed []bool, last bool) []int {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return nil
	}
	var found []int
	for _, loc := range matches {
		if spanConsumed(consumed, loc[0], loc[1]) {
			continue
		}
		found = loc
		if !last {
			break
		}
	}
	return found
}

func emitPattern(out *[]located, pat regexpattern, s string, loc []int, opts Options) {
	switch pat.name {
	case "checksum":
		*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementChecksum, Value: group(s, loc, 1)}})
	case "seasonepisode", "crossepisode":
		gi := 0
		if opts.Season {
			if v := group(s, loc, pat.groups[gi]); v != "" {
				*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementSeason, Value: v}})
			}
		}
		gi++
		if opts.Episode {
			emitEpisode(out, s, loc, pat.groups[gi:])
		}
	case "episode", "dashnumber":
		emitEpisode(out, s, loc, pat.groups)
	case "date":
		*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementDate, Value: group(s, loc, 1)}})
	case "year":
		*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementYear, Value: group(s, loc, 1)}})
	case "season":
		*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementSeason, Value: group(s, loc, 1)}})
	case "resolution":
		*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementResolution, Value: group(s, loc, 1)}})
	case "volume":
		*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementVolume, Value: group(s, loc, 1)}})
	default:
		logger.LogDynamicany(logger.StrDebug, "unhandled scan pattern", "name", pat.name)
	}
}

// emitEpisode appends one element for a single episode and two for a range
// (first=start, second=end). A parenthesized number directly after the match
// is treated as the alternate (absolute) numbering unless it reads as a year.
func emitEpisode(out *[]located, s string, loc []int, groups []int) {
	start := group(s, loc, groups[0])
	if start == "" {
		return
	}
	*out = append(*out, located{pos: loc[0], el: Element{Kind: ElementEpisode, Value: start}})
	if len(groups) > 1 {
		if end := group(s, loc, groups[1]); end != "" {
			*out = append(*out, located{pos: loc[0] + 1, el: Element{Kind: ElementEpisode, Value: end}})
			return
		}
	}
	rest := s[loc[1]:]
	if alt := altEpisodeRe.FindStringSubmatch(rest); alt != nil && !looksLikeYear(alt[1]) {
		*out = append(*out, located{pos: loc[1], el: Element{Kind: ElementEpisodeAlt, Value: alt[1]}})
	}
}

func looksLikeYear(s string) bool {
	return len(s) == 4 && (strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20"))
}

func group(s string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return s[loc[2*n]:loc[2*n+1]]
}

func spanConsumed(consumed []bool, from, to int) bool {
	for i := from; i < to && i < len(consumed); i++ {
		if consumed[i] {
			return true
		}
	}
	return false
}

func markConsumed(consumed []bool, from, to int) {
	for i := from; i < to && i < len(consumed); i++ {
		consumed[i] = true
	}
}

// lowerASCII lowers only ASCII letters, byte for byte. The keyword tables
// are all ASCII, and keeping the byte length identical to the input means
// match offsets stay valid indexes into the original string. A Unicode
// lowering can change byte lengths (U+023A lowers to a wider rune) and
// would shift every offset after it.
func lowerASCII(s string) string {
	buf := []byte(s)
	for i := range buf {
		if buf[i] >= 'A' && buf[i] <= 'Z' {
			buf[i] += 'a' - 'A'
		}
	}
	return string(buf)
}

// indexWord finds a keyword at a word boundary, -1 if absent.
func indexWord(lower, word string) int {
	from := 0
	for {
		idx := strings.Index(lower[from:], word)
		if idx < 0 {
			return -1
		}
		idx += from
		end := idx + len(word)
		preOK := idx == 0 || !isWordChar(lower[idx-1])
		postOK := end == len(lower) || !isWordChar(lower[end])
		if preOK && postOK {
			return idx
		}
		from = idx + 1
		if from >= len(lower) {
			return -1
		}
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// carveTitle returns the leading unconsumed region, cleaned up the way
// release names need: separators normalized, stray brackets and dashes
// trimmed.
func carveTitle(s string, consumed []bool, from int) string {
	end := len(s)
	for i := from; i < len(s); i++ {
		if consumed[i] {
			end = i
			break
		}
	}
	raw := s[from:end]
	if strings.Contains(raw, "(") {
		raw = strings.Split(raw, "(")[0]
	}
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "- ")
	if strings.ContainsRune(raw, '.') && !strings.ContainsRune(raw, ' ') {
		raw = strings.Replace(raw, ".", " ", -1)
	}
	raw = strings.Trim(raw, " -[]")
	return strings.TrimSpace(raw)
}

// splitKnownExtension only strips suffixes the host actually serves; version
// tags like "v2" after the final dot stay part of the stem.
func splitKnownExtension(filename string) (ext string, stem string, found bool) {
	st, ex, ok := logger.SplitExtension(filename)
	if !ok {
		return "", filename, false
	}
	if !subtitleExtensions[strings.ToLower(ex)] {
		return "", filename, false
	}
	return ex, st, true
}
