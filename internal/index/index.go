package index

// NoteIndex is the index surface the searcher needs.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, links []string) error
	DeleteNote(id string) error
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(title string) ([]string, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
