// relations maps one series' episode numbering onto an alternate canonical
// numbering using an externally authored rule table.
package relations

import (
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/nekomata-dev/subdex/pkg/main/episode"
)

// RangeKind tags the Range union.
type RangeKind uint8

const (
	// RangeNumber is a fixed numeric anchor.
	RangeNumber RangeKind = iota
	// RangeFrom is open ended: begins at a number, no upper bound.
	RangeFrom
	// RangeInclusive spans [BeginVal, EndVal].
	RangeInclusive
)

// Range is one side of a relation rule.
type Range struct {
	Kind     RangeKind
	BeginVal int
	EndVal   int
}

// Begin returns the lower bound of the range.
func (r Range) Begin() int {
	return r.BeginVal
}

// End returns the upper bound, unbounded for open-ended ranges.
func (r Range) End() int {
	switch r.Kind {
	case RangeNumber:
		return r.BeginVal
	case RangeFrom:
		return math.MaxInt
	case RangeInclusive:
		return r.EndVal
	}
	return r.BeginVal
}

// Contains reports whether the number falls inside the range.
func (r Range) Contains(number int) bool {
	return number >= r.Begin() && number <= r.End()
}

// IsNumber reports whether the range is a fixed numeric anchor.
func (r Range) IsNumber() bool {
	return r.Kind == RangeNumber
}

// rangeJSON is the wire shape of a Range: a lowercase type tag plus the
// fields that kind carries.
type rangeJSON struct {
	Type  string `json:"type"`
	Value *int   `json:"value,omitempty"`
	Begin *int   `json:"begin,omitempty"`
	End   *int   `json:"end,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Range) MarshalJSON() ([]byte, error) {
	v := r.BeginVal
	switch r.Kind {
	case RangeNumber:
		return json.Marshal(rangeJSON{Type: "number", Value: &v})
	case RangeFrom:
		return json.Marshal(rangeJSON{Type: "from", Value: &v})
	default:
		e := r.EndVal
		return json.Marshal(rangeJSON{Type: "inclusive", Begin: &v, End: &e})
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Range) UnmarshalJSON(data []byte) error {
	var raw rangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "from":
		r.Kind = RangeFrom
		if raw.Value != nil {
			r.BeginVal = *raw.Value
		}
	case "inclusive":
		r.Kind = RangeInclusive
		if raw.Begin != nil {
			r.BeginVal = *raw.Begin
		}
		if raw.End != nil {
			r.EndVal = *raw.End
		}
	default:
		r.Kind = RangeNumber
		if raw.Value != nil {
			r.BeginVal = *raw.Value
		}
	}
	return nil
}

// Rule maps a source range of episodes of one series onto a destination
// range, possibly under a different series id.
type Rule struct {
	// SeriesID is the destination series the rule redirects to.
	SeriesID int64 `json:"anilist_id"`
	// Source is the episode range the rule applies to.
	Source Range `json:"source"`
	// Destination is the range episodes are remapped into.
	Destination Range `json:"destination"`
}

// Document is a full relation table plus its cache validation stamp.
type Document struct {
	LastModified string           `json:"last_modified"`
	CreatedAt    time.Time        `json:"created_at"`
	Relations    map[int64][]Rule `json:"relations"`
}

// Empty returns a usable zero table: every lookup is unresolved, which the
// callers treat as "already canonical numbering".
func Empty() *Document {
	return &Document{
		LastModified: "1970-01-01",
		CreatedAt:    time.Unix(0, 0).UTC(),
		Relations:    map[int64][]Rule{},
	}
}

// Resolve walks the rules in table order and returns the destination series
// and episode of the first matching rule. Table order is an authoring
// invariant: specific ranges are expected before catch-all open-ended ones,
// and the first match wins.
func Resolve(rules []Rule, ep int) (int64, int, bool) {
	for idx := range rules {
		rule := &rules[idx]
		if !rule.Source.Contains(ep) {
			continue
		}
		found := rule.Destination.Begin()
		if !rule.Destination.IsNumber() {
			found += ep - rule.Source.Begin()
		}
		if found <= rule.Destination.End() {
			return rule.SeriesID, found, true
		}
	}
	return 0, 0, false
}

// Find resolves one episode of the given series. The boolean is false when
// no rule matches, meaning the episode is assumed to already be canonical.
func (d *Document) Find(seriesID int64, ep int) (int64, int, bool) {
	if d == nil {
		return 0, 0, false
	}
	rules, ok := d.Relations[seriesID]
	if !ok {
		return 0, 0, false
	}
	return Resolve(rules, ep)
}

// FindSpec resolves a whole episode spec. Both bounds of a range must
// resolve, and to the same destination series; otherwise the spec is
// reported unresolved and the caller falls back to the raw numbering.
func (d *Document) FindSpec(seriesID int64, spec episode.Spec) (episode.Spec, bool) {
	switch spec.Kind {
	case episode.Single:
		_, n, ok := d.Find(seriesID, spec.Start)
		if !ok {
			return episode.AbsentSpec, false
		}
		return episode.NewSingle(n), true
	case episode.Range:
		startID, start, ok := d.Find(seriesID, spec.Start)
		if !ok {
			return episode.AbsentSpec, false
		}
		endID, end, ok := d.Find(seriesID, spec.End)
		if !ok || startID != endID {
			return episode.AbsentSpec, false
		}
		return episode.NewRange(start, end), true
	}
	return episode.AbsentSpec, false
}
