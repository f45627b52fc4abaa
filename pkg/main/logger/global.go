package logger

import (
	"bytes"
	"errors"
	"html"
	"path"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

const (
	StrDebug = "debug"
	StrInfo  = "info"
	StrError = "error"
	StrWarn  = "warn"

	// StrFile is the shared log field name for file paths.
	StrFile = "file"
	// StrEntry is the shared log field name for directory entry ids.
	StrEntry = "entry"
)

// Shared sentinel errors. Kept here so every package compares against the
// same values instead of minting its own.
var (
	ErrNotFound       = errors.New("not found")
	ErrNotAllowed     = errors.New("not allowed")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrTableEmpty     = errors.New("relation table empty")
)

var wantedChars = map[rune]bool{
	'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true,
	'g': true, 'h': true, 'i': true, 'j': true, 'k': true, 'l': true,
	'm': true, 'n': true, 'o': true, 'p': true, 'q': true, 'r': true,
	's': true, 't': true, 'u': true, 'v': true, 'w': true, 'x': true,
	'y': true, 'z': true,
	'0': true, '1': true, '2': true, '3': true, '4': true,
	'5': true, '6': true, '7': true, '8': true, '9': true,
	'-': true,
}

func replaceUnwantedChars(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if _, ok := wantedChars[c]; ok {
			buf.WriteRune(c)
		} else {
			buf.WriteRune('-')
		}
	}
	return buf.String()
}

// StringToSlug lowercases, romanizes and strips a name down to a url-safe
// slug. Japanese and accented titles are transliterated first so two
// spellings of the same entry collapse to the same slug.
func StringToSlug(instr string) string {
	instr = strings.Replace(instr, "ß", "ss", -1) // ß to ss handling
	if strings.Contains(instr, "&") || strings.Contains(instr, "%") {
		instr = strings.ToLower(html.UnescapeString(instr))
	} else {
		instr = strings.ToLower(instr)
	}
	if strings.Contains(instr, "\\u") {
		instr2, err := strconv.Unquote("\"" + instr + "\"")
		if err == nil {
			instr = instr2
		}
	}
	instr = replaceUnwantedChars(unidecode.Unidecode(instr))
	for strings.Contains(instr, "--") {
		instr = strings.Replace(instr, "--", "-", -1)
	}
	return strings.Trim(instr, "-")
}

// Path makes a string safe to use as a file system path component. Directory
// traversal and reserved characters are removed.
func Path(s string, allowslash bool) string {
	filePath := s
	if strings.Contains(filePath, "&") || strings.Contains(filePath, "%") {
		filePath = html.UnescapeString(filePath)
	}
	if strings.Contains(filePath, "\\u") {
		filePath2, err := strconv.Unquote("\"" + filePath + "\"")
		if err == nil {
			filePath = filePath2
		}
	}

	filePath = strings.Replace(filePath, "..", "", -1)
	filePath = path.Clean(filePath)
	if allowslash {
		for _, line := range []string{":", "*", "?", "\"", "<", ">", "|"} {
			filePath = strings.Replace(filePath, line, "", -1)
		}
	} else {
		for _, line := range []string{"\\", "/", ":", "*", "?", "\"", "<", ">", "|"} {
			filePath = strings.Replace(filePath, line, "", -1)
		}
	}
	filePath = strings.Trim(filePath, " ")

	// NB this may be of length 0, caller must check
	return filePath
}

// SplitExtension splits a filename at the final dot. The second return is
// true only when the name actually carries an extension; a leading dot alone
// (dotfiles) does not count.
func SplitExtension(name string) (stem string, ext string, ok bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return name, "", false
	}
	return name[:idx], name[idx+1:], true
}
