package sign

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single letter", in: "A", want: "a"},
		{name: "spaces removed", in: "Letter A", want: "lettera"},
		{name: "punctuation removed", in: "1. loud", want: "1loud"},
		{name: "mixed case and tabs", in: "  Thank\tYou! ", want: "thankyou"},
		{name: "non-ascii dropped", in: "Café", want: "caf"},
		{name: "empty", in: "", want: ""},
		{name: "only punctuation", in: "?!.", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		target string
		want   bool
	}{
		{name: "identical", label: "A", target: "A", want: true},
		{name: "case insensitive", label: "hello", target: "Hello", want: true},
		{name: "whitespace insensitive", label: "thank you", target: "ThankYou", want: true},
		{name: "different signs", label: "B", target: "A", want: false},
		{name: "empty label", label: "", target: "", want: false},
		{name: "no hand detected", label: "No Hand Detected", target: "A", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.label, tt.target); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.label, tt.target, got, tt.want)
			}
		})
	}
}

func TestAssetIndex_Lookup(t *testing.T) {
	idx := NewAssetIndex([]string{
		"assets/A.jpg",
		"assets/1.png",
		"assets/College.jpeg",
		"assets/notes.txt",
	})

	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}

	tests := []struct {
		name   string
		lookup string
		want   string
		found  bool
	}{
		{name: "exact", lookup: "College", want: "assets/College.jpeg", found: true},
		{name: "trailing letter", lookup: "Letter A", want: "assets/A.jpg", found: true},
		{name: "trailing digits", lookup: "Number 1", want: "assets/1.png", found: true},
		{name: "unknown", lookup: "Work", found: false},
		{name: "ignored extension", lookup: "notes", found: false},
		{name: "empty", lookup: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := idx.Lookup(tt.lookup)
			if ok != tt.found {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.lookup, ok, tt.found)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.lookup, got, tt.want)
			}
		})
	}
}

func TestLoadAssetIndex(t *testing.T) {
	t.Run("reads image files from directory", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"B.jpg", "Work.png", "readme.md"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
				t.Fatalf("failed to write %s: %v", name, err)
			}
		}
		if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}

		idx, err := LoadAssetIndex(dir)
		if err != nil {
			t.Fatalf("LoadAssetIndex() error = %v", err)
		}
		if idx.Len() != 2 {
			t.Errorf("Len() = %d, want 2", idx.Len())
		}
		if _, ok := idx.Lookup("work"); !ok {
			t.Error("expected work asset to be found")
		}
	})

	t.Run("missing directory yields empty index", func(t *testing.T) {
		idx, err := LoadAssetIndex(filepath.Join(t.TempDir(), "missing"))
		if err != nil {
			t.Fatalf("LoadAssetIndex() error = %v", err)
		}
		if idx.Len() != 0 {
			t.Errorf("Len() = %d, want 0", idx.Len())
		}
	})
}

func TestSuggest(t *testing.T) {
	vocab := []string{"Hello", "Thank You", "College", "A", "B"}

	tests := []struct {
		name  string
		in    string
		want  string
		found bool
	}{
		{name: "typo", in: "Helo", want: "Hello", found: true},
		{name: "spacing", in: "thankyuo", want: "Thank You", found: true},
		{name: "unrelated", in: "Work", found: false},
		{name: "empty", in: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Suggest(tt.in, vocab)
			if ok != tt.found {
				t.Fatalf("Suggest(%q) found = %v, want %v (got %q)", tt.in, ok, tt.found, got)
			}
			if got != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
