package noteservice

import (
	"slices"

	"github.com/starford/flownote/internal/models"
)

// DeleteMode decides what happens to the items of a deleted folder or category.
type DeleteMode string

const (
	// DeleteContainedItems removes every item carrying the label.
	DeleteContainedItems DeleteMode = "delete-contained-items"
	// MoveToUnfiled clears the label on every item carrying it.
	MoveToUnfiled DeleteMode = "move-to-unfiled"
)

// Valid reports whether m is one of the two supported modes.
func (m DeleteMode) Valid() bool {
	return m == DeleteContainedItems || m == MoveToUnfiled
}

// normalizeLabels trims, drops empties and removes duplicates, keeping the
// first occurrence.
func normalizeLabels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = models.NormalizeLabel(l)
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func addLabel(registry []string, label string) ([]string, bool) {
	if slices.Contains(registry, label) {
		return registry, false
	}
	return append(registry, label), true
}

func removeLabel(registry []string, label string) ([]string, bool) {
	i := slices.Index(registry, label)
	if i < 0 {
		return registry, false
	}
	return slices.Delete(slices.Clone(registry), i, i+1), true
}

// unionLabels merges the registry with labels in use, sorted.
func unionLabels(registry []string, used func(yield func(string))) []string {
	out := slices.Clone(registry)
	used(func(l string) {
		if l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	})
	slices.Sort(out)
	return nonNil(out)
}
