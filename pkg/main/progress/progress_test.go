package progress

import (
	"testing"

	"github.com/nekomata-dev/subdex/pkg/main/episode"
	"github.com/nekomata-dev/subdex/pkg/main/relations"
)

func TestClassifyRangeVisibility(t *testing.T) {
	files := []string{
		"Show Title - 04-06.mkv",
		"Show Title - 01-03.mkv",
	}

	vis, _ := Classify(files, State{WatchedCount: 3}, 0, relations.Empty())
	if len(vis) != 2 {
		t.Fatalf("got %d visibilities; want 2", len(vis))
	}
	if vis[0].Hidden {
		t.Errorf("%s: hidden = true; want visible (next unwatched is 4)", vis[0].File)
	}
	if !vis[1].Hidden {
		t.Errorf("%s: hidden = false; want hidden (batch fully watched)", vis[1].File)
	}

	// Undetermined progress never filters.
	vis, _ = Classify(files, State{WatchedCount: 0}, 0, relations.Empty())
	for idx := range vis {
		if vis[idx].Hidden {
			t.Errorf("%s: hidden with watched count 0", vis[idx].File)
		}
	}
}

func TestClassifySingleVisibility(t *testing.T) {
	tests := []struct {
		file    string
		watched int
		hidden  bool
	}{
		{"Show Title - 05.srt", 5, true},
		{"Show Title - 05.srt", 4, false},
		{"Show Title - 05.srt", 0, false},
		{"no episode here.srt", 9, false},
	}
	for _, tt := range tests {
		vis, _ := Classify([]string{tt.file}, State{WatchedCount: tt.watched}, 0, relations.Empty())
		if vis[0].Hidden != tt.hidden {
			t.Errorf("%s watched=%d: hidden = %v; want %v", tt.file, tt.watched, vis[0].Hidden, tt.hidden)
		}
	}
}

func TestClassifyResolvedKeepsFileVisible(t *testing.T) {
	// Episode 5 of the alternate numbering is canonical episode 17, which
	// the user has not seen yet. The conservative rule keeps it visible
	// even though the raw number says watched.
	doc := &relations.Document{
		Relations: map[int64][]relations.Rule{
			42: {{
				SeriesID:    100,
				Source:      relations.Range{Kind: relations.RangeNumber, BeginVal: 5},
				Destination: relations.Range{Kind: relations.RangeNumber, BeginVal: 17},
			}},
		},
	}

	vis, _ := Classify([]string{"Show Title - 05.srt"}, State{WatchedCount: 10}, 42, doc)
	if vis[0].Hidden {
		t.Error("hidden = true; want visible via resolved episode 17")
	}
	if vis[0].Resolved != episode.NewSingle(17) {
		t.Errorf("resolved = %+v; want Single(17)", vis[0].Resolved)
	}
}

func TestClassifyMissingEpisodes(t *testing.T) {
	var files []string
	for _, n := range []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "12"} {
		files = append(files, "Show Title - "+n+".srt")
	}

	_, agg := Classify(files, State{Status: StatusFinished, TotalEpisodes: 12}, 0, relations.Empty())
	if len(agg.MissingEpisodes) != 1 || agg.MissingEpisodes[0] != 11 {
		t.Errorf("missing = %v; want [11]", agg.MissingEpisodes)
	}
	if agg.FurthestEpisodeSeen != 12 {
		t.Errorf("furthest = %d; want 12", agg.FurthestEpisodeSeen)
	}
}

func TestClassifyMissingCoveredByResolution(t *testing.T) {
	// Episode 1 of the split cour resolves to canonical 11, plugging the
	// hole the raw numbering leaves.
	doc := &relations.Document{
		Relations: map[int64][]relations.Rule{
			42: {{
				SeriesID:    42,
				Source:      relations.Range{Kind: relations.RangeInclusive, BeginVal: 1, EndVal: 2},
				Destination: relations.Range{Kind: relations.RangeInclusive, BeginVal: 11, EndVal: 12},
			}},
		},
	}

	files := []string{
		"Show Title - 01.srt",
		"Show Title - 02.srt",
	}
	_, agg := Classify(files, State{Status: StatusFinished, TotalEpisodes: 12}, 42, doc)
	for _, n := range agg.MissingEpisodes {
		if n == 11 || n == 12 {
			t.Errorf("episode %d reported missing despite resolved coverage", n)
		}
	}
}

func TestClassifyMovieLikeMissing(t *testing.T) {
	_, agg := Classify(nil, State{TotalEpisodes: 1}, 0, relations.Empty())
	if len(agg.MissingEpisodes) != 1 || agg.MissingEpisodes[0] != 1 {
		t.Errorf("missing = %v; want [1]", agg.MissingEpisodes)
	}
}

func TestClassifyBehindLatest(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		files  []string
		behind bool
	}{
		{
			name:   "behind",
			state:  State{Status: StatusReleasing, NextAiringEpisode: 10},
			files:  []string{"Show Title - 05.srt"},
			behind: true,
		},
		{
			name:   "caught up",
			state:  State{Status: StatusReleasing, NextAiringEpisode: 10},
			files:  []string{"Show Title - 09.srt"},
			behind: false,
		},
		{
			name:   "finished never behind",
			state:  State{Status: StatusFinished, NextAiringEpisode: 10},
			files:  []string{"Show Title - 05.srt"},
			behind: false,
		},
		{
			name:   "unknown airing never behind",
			state:  State{Status: StatusReleasing},
			files:  []string{"Show Title - 05.srt"},
			behind: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, agg := Classify(tt.files, tt.state, 0, relations.Empty())
			if agg.IsBehindLatest != tt.behind {
				t.Errorf("behind = %v; want %v", agg.IsBehindLatest, tt.behind)
			}
		})
	}
}
