// progress decides per-file watch visibility and series completeness
// diagnostics from parsed episode data, resolved equivalents and the
// user's recorded progress.
package progress

import (
	"sort"

	"github.com/nekomata-dev/subdex/pkg/main/episode"
	"github.com/nekomata-dev/subdex/pkg/main/parser"
	"github.com/nekomata-dev/subdex/pkg/main/relations"
)

// Status is the release state of a series.
type Status string

const (
	StatusReleasing  Status = "releasing"
	StatusFinished   Status = "finished"
	StatusUnreleased Status = "unreleased"
)

// State is the user's recorded progress for one series. Read-only input.
type State struct {
	// WatchedCount is the number of episodes already consumed.
	// Zero means undetermined and must never hide anything.
	WatchedCount int `json:"watched_count"`
	// TotalEpisodes is the known episode total, 0 when unknown.
	TotalEpisodes int `json:"total_episodes"`
	// Status is the series release state.
	Status Status `json:"status"`
	// NextAiringEpisode is the upcoming episode number, 0 when unknown.
	NextAiringEpisode int `json:"next_airing_episode"`
}

// FileVisibility is the per-file classification result.
type FileVisibility struct {
	File     string       `json:"file"`
	Hidden   bool         `json:"hidden"`
	Episode  episode.Spec `json:"episode"`
	Resolved episode.Spec `json:"resolved"`
}

// Aggregates are the series-level completeness diagnostics.
type Aggregates struct {
	FurthestEpisodeSeen int   `json:"furthest_episode_seen"`
	MissingEpisodes     []int `json:"missing_episodes"`
	IsBehindLatest      bool  `json:"is_behind_latest"`
}

// Classify runs the full pipeline over a file list: parse, normalize,
// resolve through the relation table, then apply the visibility rule to
// both the raw and the resolved numbering. A file is hidden only when
// both agree it is already watched.
func Classify(files []string, state State, seriesID int64, doc *relations.Document) ([]FileVisibility, Aggregates) {
	out := make([]FileVisibility, 0, len(files))
	present := make(map[int]struct{})
	furthest := 0

	opts := parser.DefaultOptions()
	for idx := range files {
		spec := episode.Normalize(parser.Parse(files[idx], opts))

		resolved := episode.AbsentSpec
		if doc != nil && spec.Kind != episode.Absent {
			if r, ok := doc.FindSpec(seriesID, spec); ok {
				resolved = r
			}
		}

		hidden := hiddenBySpec(spec, state) && hiddenBySpec(resolvedOrRaw(resolved, spec), state)

		out = append(out, FileVisibility{
			File:     files[idx],
			Hidden:   hidden,
			Episode:  spec,
			Resolved: resolved,
		})

		for _, n := range spec.Episodes() {
			present[n] = struct{}{}
			if n > furthest {
				furthest = n
			}
		}
		for _, n := range resolved.Episodes() {
			present[n] = struct{}{}
			if n > furthest {
				furthest = n
			}
		}
	}

	agg := Aggregates{
		FurthestEpisodeSeen: furthest,
		MissingEpisodes:     missingEpisodes(state, len(files), present),
		IsBehindLatest:      behindLatest(state, furthest),
	}
	return out, agg
}

// hiddenBySpec applies the visibility rule to a single spec. Absent specs
// are never hidden; neither is anything while progress is undetermined.
func hiddenBySpec(spec episode.Spec, state State) bool {
	if state.WatchedCount == 0 {
		return false
	}
	switch spec.Kind {
	case episode.Single:
		return spec.Start <= state.WatchedCount
	case episode.Range:
		// A batch only counts as new when it contains the next
		// unwatched episode.
		return !spec.Contains(state.WatchedCount + 1)
	}
	return false
}

// resolvedOrRaw falls back to the raw spec when resolution produced
// nothing, so the two-sided hidden check stays conservative.
func resolvedOrRaw(resolved, raw episode.Spec) episode.Spec {
	if resolved.Kind == episode.Absent {
		return raw
	}
	return resolved
}

func missingEpisodes(state State, fileCount int, present map[int]struct{}) []int {
	if state.TotalEpisodes == 1 && fileCount == 0 {
		return []int{1}
	}
	if state.Status != StatusFinished || state.TotalEpisodes <= 0 {
		return nil
	}
	var missing []int
	for n := 1; n <= state.TotalEpisodes; n++ {
		if _, ok := present[n]; !ok {
			missing = append(missing, n)
		}
	}
	sort.Ints(missing)
	return missing
}

func behindLatest(state State, furthest int) bool {
	return state.Status == StatusReleasing &&
		state.NextAiringEpisode > 0 &&
		furthest < state.NextAiringEpisode-1
}
