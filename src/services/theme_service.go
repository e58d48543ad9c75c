package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/models"
)

const themeKey = "theme"

var ErrUnknownTheme = errors.New("theme must be one of light, dark or system")

var LightPalette = models.Palette{
	Background:      "#ffffff",
	Surface:         "#f8fafc",
	Card:            "#ffffff",
	CardSecondary:   "#f1f5f9",
	Text:            "#1e293b",
	TextSecondary:   "#64748b",
	TextTertiary:    "#94a3b8",
	Border:          "#e2e8f0",
	BorderSecondary: "#f1f5f9",
	Primary:         "#6366f1",
	PrimaryLight:    "#818cf8",
	PrimaryDark:     "#4f46e5",
	Success:         "#10b981",
	SuccessLight:    "#34d399",
	Warning:         "#f59e0b",
	WarningLight:    "#fbbf24",
	Error:           "#ef4444",
	ErrorLight:      "#f87171",
	Action:          "#6366f1",
	ActionHover:     "#4f46e5",
	Positive:        "#10b981",
	Negative:        "#ef4444",
	Neutral:         "#6b7280",
}

var DarkPalette = models.Palette{
	Background:      "#0a0a0a",
	Surface:         "#1a1a1a",
	Card:            "#1a1a1a",
	CardSecondary:   "#2a2a2a",
	Text:            "#ffffff",
	TextSecondary:   "#9ca3af",
	TextTertiary:    "#6b7280",
	Border:          "#1a1a1a",
	BorderSecondary: "#2a2a2a",
	Primary:         "#6366f1",
	PrimaryLight:    "#818cf8",
	PrimaryDark:     "#4f46e5",
	Success:         "#10b981",
	SuccessLight:    "#34d399",
	Warning:         "#f59e0b",
	WarningLight:    "#fbbf24",
	Error:           "#ef4444",
	ErrorLight:      "#f87171",
	Action:          "#6366f1",
	ActionHover:     "#4f46e5",
	Positive:        "#10b981",
	Negative:        "#ef4444",
	Neutral:         "#6b7280",
}

// IsDark resolves the effective darkness of a theme choice.
func IsDark(theme models.Theme, systemDark bool) bool {
	if theme == models.ThemeSystem {
		return systemDark
	}
	return theme == models.ThemeDark
}

func Palette(theme models.Theme, systemDark bool) models.Palette {
	if IsDark(theme, systemDark) {
		return DarkPalette
	}
	return LightPalette
}

func ResolveTheme(theme models.Theme, systemDark bool) models.ThemeState {
	return models.ThemeState{
		Theme:  theme,
		IsDark: IsDark(theme, systemDark),
		Colors: Palette(theme, systemDark),
	}
}

type ThemeService struct {
	store PreferenceStore
}

func NewThemeService(store PreferenceStore) *ThemeService {
	return &ThemeService{store: store}
}

// Get returns the saved theme, or system when nothing usable is stored.
func (s *ThemeService) Get(ctx context.Context, userID int64) models.Theme {
	raw, found, err := s.store.Get(ctx, userID, themeKey)
	if err != nil {
		logger.FromContext(ctx).Error("Error loading theme", "userID", userID, "error", err)
		return models.ThemeSystem
	}
	theme := models.Theme(raw)
	if !found || !theme.Valid() {
		return models.ThemeSystem
	}
	return theme
}

func (s *ThemeService) Set(ctx context.Context, userID int64, theme models.Theme) error {
	if !theme.Valid() {
		return ErrUnknownTheme
	}
	if err := s.store.Set(ctx, userID, themeKey, string(theme)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Toggle flips the effective appearance. A system theme becomes the explicit
// opposite of what the device currently shows.
func (s *ThemeService) Toggle(ctx context.Context, userID int64, systemDark bool) (models.Theme, error) {
	next := models.ThemeDark
	if IsDark(s.Get(ctx, userID), systemDark) {
		next = models.ThemeLight
	}
	return next, s.Set(ctx, userID, next)
}
