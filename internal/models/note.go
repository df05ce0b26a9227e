// Package models defines the domain types persisted by flownote.
package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Note is a Markdown note. An empty Folder means the note is unfiled.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Folder    string    `json:"folder,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields a caller may set.
func (n Note) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ID, validation.Required),
		validation.Field(&n.Title, validation.Length(0, 512)),
	)
}

// Flow is a diagram whose nodes reference notes by id.
type Flow struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Category  string     `json:"category,omitempty"`
	Nodes     []FlowNode `json:"nodes"`
	Edges     []FlowEdge `json:"edges"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks the fields a caller may set.
func (f Flow) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ID, validation.Required),
		validation.Field(&f.Title, validation.Length(0, 512)),
	)
}

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlowNode places a note on a flow canvas. NoteID may reference a note that
// no longer exists; Label caches the note title for that case.
type FlowNode struct {
	ID       string   `json:"id"`
	NoteID   string   `json:"noteId"`
	Position Position `json:"position"`
	Color    string   `json:"color,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Label    string   `json:"label,omitempty"`
}

// FlowEdge connects two flow nodes.
type FlowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// NormalizeLabel trims a folder or category label. The empty result means unfiled.
func NormalizeLabel(label string) string {
	return strings.TrimSpace(label)
}

// Theme values.
const (
	ThemeDefault = "default"
	ThemeDarker  = "darker"
)

// ThemeSetting is the theme.json document.
type ThemeSetting struct {
	Theme string `json:"theme"`
}

// Validate checks the theme name.
func (t ThemeSetting) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Theme, validation.Required, validation.In(ThemeDefault, ThemeDarker)),
	)
}
