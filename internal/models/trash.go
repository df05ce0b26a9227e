package models

import "time"

// ItemType identifies what a trash entry holds.
type ItemType string

const (
	ItemNote     ItemType = "note"
	ItemFlow     ItemType = "flow"
	ItemFolder   ItemType = "folder"
	ItemCategory ItemType = "category"
)

// IsContainer reports whether entries of this type only group other entries.
func (t ItemType) IsContainer() bool {
	return t == ItemFolder || t == ItemCategory
}

// TrashMetadata is the snapshot needed to rebuild a trashed item.
type TrashMetadata struct {
	Note      *Note    `json:"note,omitempty"`
	Flow      *Flow    `json:"flow,omitempty"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

// TrashedItem is one entry of the trash index.
type TrashedItem struct {
	ID               string        `json:"id"`
	Type             ItemType      `json:"type"`
	Title            string        `json:"title"`
	OriginalPath     string        `json:"originalPath"`
	TrashPath        string        `json:"trashPath,omitempty"`
	OriginalFolder   string        `json:"originalFolder,omitempty"`
	OriginalCategory string        `json:"originalCategory,omitempty"`
	DeletedAt        time.Time     `json:"deletedAt"`
	Metadata         TrashMetadata `json:"metadata"`
}

// TrashIndexVersion is written into every trash index.
const TrashIndexVersion = 1

// TrashIndex is the trash-index.json document.
type TrashIndex struct {
	Version     int           `json:"version"`
	LastUpdated time.Time     `json:"lastUpdated"`
	Items       []TrashedItem `json:"items"`
}

// Find returns the position of the entry with id, or -1.
func (ix *TrashIndex) Find(id string) int {
	for i := range ix.Items {
		if ix.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Remove drops the entry with id and reports whether it was present.
func (ix *TrashIndex) Remove(id string) bool {
	i := ix.Find(id)
	if i < 0 {
		return false
	}
	ix.Items = append(ix.Items[:i], ix.Items[i+1:]...)
	return true
}
