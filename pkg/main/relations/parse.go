package relations

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// The upstream relation file lists one rule per line:
//
//	- 10001|10002|10003:14-26 -> 20001|20002|20003:1-13!
//
// Each side is MyAnimeList id | Kitsu id | AniList id : episode range. Only
// the AniList ids are of interest here. "?" marks an unknown id, "~" repeats
// the source id, and a "!" suffix additionally registers the rule under the
// destination id (self redirect). A "- last_modified: <date>" line carries
// the cache stamp.

type relationID struct {
	value    int64
	unknown  bool
	repeated bool
}

func parseRelationID(s string) (relationID, error) {
	switch s {
	case "?":
		return relationID{unknown: true}, nil
	case "~":
		return relationID{repeated: true}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return relationID{}, errors.Wrap(err, "invalid relation id")
	}
	return relationID{value: v}, nil
}

// parseRange understands n, n-m and n-? (open ended).
func parseRange(s string) (Range, error) {
	left, right, found := strings.Cut(s, "-")
	begin, err := strconv.Atoi(left)
	if err != nil {
		return Range{}, errors.Wrap(err, "invalid episode range")
	}
	if !found {
		return Range{Kind: RangeNumber, BeginVal: begin}, nil
	}
	if right == "?" {
		return Range{Kind: RangeFrom, BeginVal: begin}, nil
	}
	end, err := strconv.Atoi(right)
	if err != nil {
		return Range{}, errors.Wrap(err, "invalid episode range")
	}
	return Range{Kind: RangeInclusive, BeginVal: begin, EndVal: end}, nil
}

type ruleComponent struct {
	id      relationID
	episode Range
}

func parseRuleComponent(s string) (ruleComponent, error) {
	_, rest, found := rcut(s, '|')
	if !found {
		return ruleComponent{}, errors.New("invalid relation rule component")
	}
	idstr, episodes, found := strings.Cut(rest, ":")
	if !found {
		return ruleComponent{}, errors.New("invalid relation rule component")
	}
	id, err := parseRelationID(idstr)
	if err != nil {
		return ruleComponent{}, err
	}
	rng, err := parseRange(episodes)
	if err != nil {
		return ruleComponent{}, err
	}
	return ruleComponent{id: id, episode: rng}, nil
}

// rcut is strings.Cut from the right.
func rcut(s string, sep byte) (before, after string, found bool) {
	idx := strings.LastIndexByte(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

// Parse reads the upstream relation file format into a Document. Lines that
// are not rules or the last_modified stamp are ignored; a malformed rule
// line fails the whole parse so a truncated download is never half applied.
func Parse(text string) (*Document, error) {
	doc := Empty()
	doc.CreatedAt = time.Now().UTC()

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		line, ok := strings.CutPrefix(line, "- ")
		if !ok {
			continue
		}

		if date, ok := strings.CutPrefix(line, "last_modified: "); ok {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return nil, errors.Wrap(err, "invalid last_modified date")
			}
			doc.LastModified = date
			continue
		}

		left, right, ok := strings.Cut(line, " -> ")
		if !ok {
			continue
		}
		right, redirected := strings.CutSuffix(right, "!")

		src, err := parseRuleComponent(left)
		if err != nil {
			return nil, err
		}
		if src.id.unknown || src.id.repeated {
			continue
		}
		dst, err := parseRuleComponent(right)
		if err != nil {
			return nil, err
		}
		destinationID := dst.id.value
		if dst.id.unknown || dst.id.repeated {
			destinationID = src.id.value
		}

		rule := Rule{
			SeriesID:    destinationID,
			Source:      src.episode,
			Destination: dst.episode,
		}
		doc.Relations[src.id.value] = append(doc.Relations[src.id.value], rule)
		if redirected {
			doc.Relations[destinationID] = append(doc.Relations[destinationID], rule)
		}
	}
	return doc, nil
}
