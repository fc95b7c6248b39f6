package note

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple words",
			input: "Foo Bar",
			want:  "foo-bar",
		},
		{
			name:  "heading anchor stripped",
			input: "Note#Section",
			want:  "note",
		},
		{
			name:  "special characters hyphenated",
			input: "C++ & Go: A Comparison!",
			want:  "c-go-a-comparison",
		},
		{
			name:  "runs collapse to single hyphen",
			input: "a   ---   b",
			want:  "a-b",
		},
		{
			name:  "leading and trailing trimmed",
			input: "  (draft)  ",
			want:  "draft",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "only punctuation",
			input: "!!!",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.input)
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{"Foo Bar", "Notes/Deep Dive", "C++ & Go", "already-normal"}
	for _, in := range inputs {
		once := Slugify(in)
		twice := Slugify(once)
		if once != twice {
			t.Errorf("Slugify not idempotent on %q: %q != %q", in, once, twice)
		}
	}
}

func TestPathSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "extension stripped",
			input: "Idea.md",
			want:  "idea",
		},
		{
			name:  "nested path keeps separators",
			input: "Notes/Deep Dives/Data Contracts.md",
			want:  "notes/deep-dives/data-contracts",
		},
		{
			name:  "windows separators",
			input: `Archive\Old Idea.md`,
			want:  "archive/old-idea",
		},
		{
			name:  "case folded",
			input: "PROJECTS/Roadmap.md",
			want:  "projects/roadmap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PathSlug(tt.input)
			if got != tt.want {
				t.Errorf("PathSlug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFolder(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Idea.md", ""},
		{"Notes/Idea.md", "Notes"},
		{"Notes/Deep/Idea.md", "Notes/Deep"},
	}

	for _, tt := range tests {
		if got := Folder(tt.input); got != tt.want {
			t.Errorf("Folder(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
