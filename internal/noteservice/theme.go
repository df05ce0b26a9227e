package noteservice

import (
	"fmt"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/storage"
)

// GetTheme returns the cached theme name.
func (s *Service) GetTheme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme stores the theme name.
func (s *Service) SetTheme(theme string) error {
	setting := models.ThemeSetting{Theme: theme}
	if err := setting.Validate(); err != nil {
		return fmt.Errorf("noteservice: theme: %w: %w", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	if s.theme == theme {
		return nil
	}
	s.theme = theme
	s.persistLocked(storage.DocTheme)
	return nil
}
