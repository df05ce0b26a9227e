package parser

import (
	"slices"
	"testing"

	"github.com/starford/flownote/internal/models"
)

func TestAnalyze_HeaderAndBody(t *testing.T) {
	r := Analyze(models.Note{Content: "---\ntitle: Hello\ntags:\n  - Go\n  - flownote\n---\n# Heading\nBody #draft text.\n"})
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if !slices.Equal(r.Tags, []string{"draft", "flownote", "go"}) {
		t.Errorf("tags = %v", r.Tags)
	}
	if r.Text != "# Heading\nBody #draft text.\n" {
		t.Errorf("text = %q", r.Text)
	}
}

func TestAnalyze_NoteTitleWins(t *testing.T) {
	r := Analyze(models.Note{Title: "Stored", Content: "---\ntitle: Header\n---\nbody"})
	if r.Title != "Stored" {
		t.Errorf("title = %q, want Stored", r.Title)
	}
}

func TestAnalyze_HeadingFallback(t *testing.T) {
	r := Analyze(models.Note{Content: "intro\n# Just a heading\nSome text.\n"})
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestAnalyze_InvalidHeaderIsText(t *testing.T) {
	content := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := Analyze(models.Note{Content: content})
	if r.Text != content {
		t.Errorf("text = %q, want the whole content", r.Text)
	}
}

func TestCollectLinks(t *testing.T) {
	links := collectLinks("See [[Note A]] and [[Note B|alias]].\nAlso [[note a]] again and [[ ]].")
	if !slices.Equal(links, []string{"Note A", "Note B"}) {
		t.Errorf("links = %v", links)
	}
}

func TestCollectTags(t *testing.T) {
	tags := collectTags([]string{"#Work"}, "a #todo b#notatag #work #x/y")
	if !slices.Equal(tags, []string{"todo", "work", "x/y"}) {
		t.Errorf("tags = %v", tags)
	}
}
