package index

import (
	"log/slog"

	"github.com/starford/flownote/internal/checksum"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/parser"
)

// Sync brings the index in line with notes:
//   - new or changed notes are analyzed and upserted
//   - notes no longer present are deleted from the index
func Sync(db NoteIndex, notes []models.Note, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		live[n.ID] = struct{}{}

		cs := noteChecksum(n)
		if checksums[n.ID] == cs {
			continue
		}
		res := parser.Analyze(n)
		row := NoteRow{
			ID:        n.ID,
			Title:     res.Title,
			Folder:    n.Folder,
			Checksum:  cs,
			Tags:      res.Tags,
			UpdatedAt: n.UpdatedAt,
		}
		if err := db.UpsertNote(row, res.Text, res.Links); err != nil {
			logger.Warn("sync: index failed", slog.String("id", n.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", n.ID))
		}
	}

	for id := range checksums {
		if _, ok := live[id]; ok {
			continue
		}
		if err := db.DeleteNote(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("id", id))
		}
	}
	return nil
}

func noteChecksum(n models.Note) string {
	return checksum.Sum([]byte(n.Folder + "\x00" + n.Title + "\x00" + n.Content))
}
