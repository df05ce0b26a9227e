package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/flownote/internal/apperr"
)

// Restorer re-establishes directory access without user interaction.
type Restorer interface {
	RestoreOnStartup(ctx context.Context) error
}

// WriteThrough writes a document to the primary backend. A capability-class
// failure triggers one restoration and one retry. If the primary still fails
// the document is written to fallback instead and the desync is logged at
// error level; the primary error is returned only if that write fails too.
type WriteThrough struct {
	Primary  Backend
	Fallback Backend
	Restorer Restorer
	Logger   *slog.Logger
}

// WriteDocument writes data as doc.
func (w WriteThrough) WriteDocument(ctx context.Context, doc Document, data []byte) error {
	err := w.Primary.WriteDocument(ctx, doc, data)
	if err == nil {
		return nil
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if apperr.IsRecoverable(err) && w.Restorer != nil {
		if rerr := w.Restorer.RestoreOnStartup(ctx); rerr != nil {
			logger.Warn("storage: handle restoration failed", slog.String("error", rerr.Error()))
		}
		if err = w.Primary.WriteDocument(ctx, doc, data); err == nil {
			logger.Info("storage: write succeeded after restoring the handle",
				slog.String("document", string(doc)))
			return nil
		}
	}
	if w.Fallback == nil || w.Fallback == w.Primary {
		return err
	}
	if ferr := w.Fallback.WriteDocument(ctx, doc, data); ferr != nil {
		logger.Error("storage: primary and fallback writes both failed",
			slog.String("document", string(doc)),
			slog.String("error", err.Error()),
			slog.String("fallback_error", ferr.Error()))
		return errors.Join(err, ferr)
	}
	logger.Error("storage: write to configured backend failed, saved to local fallback instead",
		slog.String("document", string(doc)),
		slog.String("backend", w.Primary.Kind()),
		slog.String("error", err.Error()))
	return nil
}
