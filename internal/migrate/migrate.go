// Package migrate copies data kept in the local fallback into a newly
// connected directory.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/flownote/internal/kv"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/storage"
)

// MigratedAtKey records when the last migration finished.
const MigratedAtKey = "flownote:migrated-at"

// Report counts what a migration wrote into the directory.
type Report struct {
	Notes      int  `json:"notes"`
	Flows      int  `json:"flows"`
	Folders    int  `json:"folders"`
	Categories int  `json:"categories"`
	Theme      bool `json:"theme"`
	Trash      int  `json:"trash"`
}

// Empty reports whether nothing was copied.
func (r Report) Empty() bool {
	return r == Report{}
}

// Run merges every document of from into to. Items are matched by id and the
// copy already in to wins; label lists are unioned; the theme and the trash
// are copied only when to has none. The fallback data is left in place.
func Run(ctx context.Context, from, to storage.Backend, flags kv.Store, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rep Report
	var err error

	if rep.Notes, err = mergeList(ctx, from, to, storage.DocNotes, logger, func(n models.Note) string { return n.ID }); err != nil {
		return rep, err
	}
	if rep.Flows, err = mergeList(ctx, from, to, storage.DocFlows, logger, func(f models.Flow) string { return f.ID }); err != nil {
		return rep, err
	}
	if rep.Folders, err = mergeList(ctx, from, to, storage.DocFolders, logger, models.NormalizeLabel); err != nil {
		return rep, err
	}
	if rep.Categories, err = mergeList(ctx, from, to, storage.DocCategories, logger, models.NormalizeLabel); err != nil {
		return rep, err
	}
	if rep.Theme, err = copyTheme(ctx, from, to, logger); err != nil {
		return rep, err
	}
	if rep.Trash, err = copyTrash(ctx, from, to, logger); err != nil {
		return rep, err
	}

	if flags != nil {
		if err := flags.Set(ctx, MigratedAtKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			logger.Warn("migrate: record completion failed", slog.String("error", err.Error()))
		}
	}
	logger.Info("migrate: fallback data copied into directory",
		slog.Int("notes", rep.Notes),
		slog.Int("flows", rep.Flows),
		slog.Int("folders", rep.Folders),
		slog.Int("categories", rep.Categories),
		slog.Bool("theme", rep.Theme),
		slog.Int("trash", rep.Trash))
	return rep, nil
}

// MigratedAt returns when the last migration finished, if ever.
func MigratedAt(ctx context.Context, flags kv.Store) (time.Time, bool) {
	v, ok, err := flags.Get(ctx, MigratedAtKey)
	if err != nil || !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func mergeList[T any](ctx context.Context, from, to storage.Backend, doc storage.Document, logger *slog.Logger, key func(T) string) (int, error) {
	src, err := storage.ReadList[T](ctx, from, doc, logger)
	if err != nil {
		return 0, fmt.Errorf("migrate: read %s: %w", doc, err)
	}
	if len(src) == 0 {
		return 0, nil
	}
	dst, err := storage.ReadList[T](ctx, to, doc, logger)
	if err != nil {
		return 0, fmt.Errorf("migrate: read target %s: %w", doc, err)
	}
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[key(v)] = true
	}
	added := 0
	for _, v := range src {
		k := key(v)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, v)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := storage.WriteValue(ctx, to, doc, dst); err != nil {
		return 0, fmt.Errorf("migrate: write %s: %w", doc, err)
	}
	return added, nil
}

func copyTheme(ctx context.Context, from, to storage.Backend, logger *slog.Logger) (bool, error) {
	existing, err := storage.ReadObject[models.ThemeSetting](ctx, to, storage.DocTheme, logger)
	if err != nil || existing != nil {
		return false, err
	}
	theme, err := storage.ReadObject[models.ThemeSetting](ctx, from, storage.DocTheme, logger)
	if err != nil || theme == nil {
		return false, err
	}
	if err := storage.WriteValue(ctx, to, storage.DocTheme, theme); err != nil {
		return false, fmt.Errorf("migrate: write theme: %w", err)
	}
	return true, nil
}

func copyTrash(ctx context.Context, from, to storage.Backend, logger *slog.Logger) (int, error) {
	existing, err := to.ReadDocument(ctx, storage.DocTrashIndex)
	if err != nil || existing != nil {
		return 0, err
	}
	ix, err := storage.ReadObject[models.TrashIndex](ctx, from, storage.DocTrashIndex, logger)
	if err != nil || ix == nil || len(ix.Items) == 0 {
		return 0, err
	}

	// Copies first, then the index, so a failure never indexes a missing copy.
	kept := ix.Items[:0:0]
	for _, item := range ix.Items {
		if item.Type.IsContainer() {
			kept = append(kept, item)
			continue
		}
		data, err := from.ReadArtifact(ctx, item.Type, item.ID)
		if err != nil {
			return 0, fmt.Errorf("migrate: read trash copy %s: %w", item.ID, err)
		}
		if data == nil {
			logger.Warn("migrate: trash entry without copy skipped", slog.String("id", item.ID))
			continue
		}
		if item.TrashPath, err = to.WriteArtifact(ctx, item.Type, item.ID, data); err != nil {
			return 0, fmt.Errorf("migrate: write trash copy %s: %w", item.ID, err)
		}
		switch item.Type {
		case models.ItemNote:
			item.OriginalPath = to.Location(storage.DocNotes)
		case models.ItemFlow:
			item.OriginalPath = to.Location(storage.DocFlows)
		}
		kept = append(kept, item)
	}
	ix.Items = kept
	ix.Version = models.TrashIndexVersion
	ix.LastUpdated = time.Now().UTC()
	if err := storage.WriteValue(ctx, to, storage.DocTrashIndex, ix); err != nil {
		return 0, fmt.Errorf("migrate: write trash index: %w", err)
	}
	return len(kept), nil
}
