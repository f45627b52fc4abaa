package logger

import "testing"

func TestStringToSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple title",
			input:    "Sousou no Frieren",
			expected: "sousou-no-frieren",
		},
		{
			name:     "Symbols",
			input:    "Mobile Suit Gundam: The Witch from Mercury",
			expected: "mobile-suit-gundam-the-witch-from-mercury",
		},
		{
			name:     "Sharp s",
			input:    "Weiße Rose",
			expected: "weisse-rose",
		},
		{
			name:     "Collapses repeats",
			input:    "a  --  b",
			expected: "a-b",
		},
		{
			name:     "Empty",
			input:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StringToSlug(tt.input); got != tt.expected {
				t.Errorf("StringToSlug(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		allowslash bool
		expected   string
	}{
		{
			name:       "Strips traversal",
			input:      "../../etc/passwd",
			allowslash: false,
			expected:   "etcpasswd",
		},
		{
			name:       "Keeps slashes when allowed",
			input:      "Frieren/Episode 01.srt",
			allowslash: true,
			expected:   "Frieren/Episode 01.srt",
		},
		{
			name:       "Removes reserved characters",
			input:      "what? really*.srt",
			allowslash: false,
			expected:   "what really.srt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Path(tt.input, tt.allowslash); got != tt.expected {
				t.Errorf("Path(%q, %v) = %q; want %q", tt.input, tt.allowslash, got, tt.expected)
			}
		})
	}
}

func TestSplitExtension(t *testing.T) {
	tests := []struct {
		name  string
		input string
		stem  string
		ext   string
		ok    bool
	}{
		{name: "Normal", input: "ep1.srt", stem: "ep1", ext: "srt", ok: true},
		{name: "Multiple dots", input: "show.S01E02.ass", stem: "show.S01E02", ext: "ass", ok: true},
		{name: "No extension", input: "README", stem: "README", ext: "", ok: false},
		{name: "Dotfile", input: ".gitignore", stem: ".gitignore", ext: "", ok: false},
		{name: "Trailing dot", input: "weird.", stem: "weird.", ext: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext, ok := SplitExtension(tt.input)
			if stem != tt.stem || ext != tt.ext || ok != tt.ok {
				t.Errorf("SplitExtension(%q) = (%q, %q, %v); want (%q, %q, %v)",
					tt.input, stem, ext, ok, tt.stem, tt.ext, tt.ok)
			}
		})
	}
}
