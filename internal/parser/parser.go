// Package parser pulls #tags and [[wikilinks]] out of note content so the
// search index can match on them.
package parser

import (
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/flownote/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result is what the index stores for one note.
type Result struct {
	Title string
	// Text is the content without a leading YAML header.
	Text  string
	Tags  []string
	Links []string
}

type header struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// Analyze extracts the searchable parts of n. Notes imported from Markdown
// files may start with a YAML header; its title is used when n has none and
// its tags are merged with inline #tags.
func Analyze(n models.Note) Result {
	h, text := splitHeader(n.Content)
	res := Result{Title: strings.TrimSpace(n.Title), Text: text}
	if res.Title == "" {
		res.Title = h.Title
	}
	if res.Title == "" {
		res.Title = firstHeading(text)
	}
	res.Tags = collectTags(h.Tags, text)
	res.Links = collectLinks(text)
	return res
}

func splitHeader(content string) (header, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\r\n")
	if !strings.HasPrefix(trimmed, delim+"\n") && !strings.HasPrefix(trimmed, delim+"\r\n") {
		return header{}, content
	}
	rest := trimmed[len(delim):]
	end := strings.Index(rest, "\n"+delim)
	if end < 0 {
		return header{}, content
	}
	var h header
	if err := yaml.Unmarshal([]byte(rest[:end]), &h); err != nil {
		return header{}, content
	}
	body := rest[end+1+len(delim):]
	return h, strings.TrimLeft(body, "\r\n")
}

// collectTags returns lower-cased, sorted, unique tags.
func collectTags(declared []string, text string) []string {
	var tags []string
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "#")))
		if t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	for _, t := range declared {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	slices.Sort(tags)
	return tags
}

// collectLinks returns wikilink targets in order of first use. [[Target|Alias]]
// links to Target; targets differing only in case are the same link.
func collectLinks(text string) []string {
	var links []string
	seen := make(map[string]bool)
	for _, m := range wikilinkRe.FindAllStringSubmatch(text, -1) {
		target, _, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		key := strings.ToLower(target)
		if target == "" || seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, target)
	}
	return links
}

func firstHeading(text string) string {
	for line := range strings.Lines(text) {
		if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(h)
		}
	}
	return ""
}
