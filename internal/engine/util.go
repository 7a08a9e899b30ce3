package engine

import (
	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

// ConfigFromSettings converts scene render settings.
func ConfigFromSettings(settings scene.RenderSettings) RenderConfig {
	return RenderConfig{
		Width:        settings.Width,
		Height:       settings.Height,
		SamplesPerPx: settings.SamplesPerPx,
		MaxDepth:     settings.MaxDepth,
	}
}

// RenderSettingsForMode returns reasonable defaults for preview/final modes.
func RenderSettingsForMode(mode string) scene.RenderSettings {
	switch mode {
	case "final":
		return scene.RenderSettings{
			Width:        1920,
			Height:       1080,
			SamplesPerPx: 1000,
			MaxDepth:     80,
		}
	default:
		return scene.RenderSettings{
			Width:        400,
			Height:       225,
			SamplesPerPx: 20,
			MaxDepth:     20,
		}
	}
}

// SettingsFor returns the scene's own settings where set, falling back to the
// mode defaults field by field.
func SettingsFor(sc *scene.Scene, mode string) scene.RenderSettings {
	s := RenderSettingsForMode(mode)
	if sc.Settings.Width > 0 && sc.Settings.Height > 0 {
		s.Width = sc.Settings.Width
		s.Height = sc.Settings.Height
	}
	if sc.Settings.SamplesPerPx > 0 {
		s.SamplesPerPx = sc.Settings.SamplesPerPx
	}
	if sc.Settings.MaxDepth > 0 {
		s.MaxDepth = sc.Settings.MaxDepth
	}
	return s
}
