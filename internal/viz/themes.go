package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of a portrait and its side panel.
type Theme struct {
	Name       string
	Field      lipgloss.Color
	Nullclines [2]lipgloss.Color
	Trajectory lipgloss.Color
	Latest     lipgloss.Color
	Fixed      lipgloss.Color
	Cursor     lipgloss.Color
	Axis       lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:       "cyberpunk",
		Field:      lipgloss.Color("#444466"),
		Nullclines: [2]lipgloss.Color{"#ff00ff", "#00ffff"},
		Trajectory: lipgloss.Color("#00ff88"),
		Latest:     lipgloss.Color("#ffff00"),
		Fixed:      lipgloss.Color("#ff8800"),
		Cursor:     lipgloss.Color("#ffffff"),
		Axis:       lipgloss.Color("#333344"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#666688"),
		Error:      lipgloss.Color("#ff4444"),
	}

	ThemeRetroGreen = Theme{
		Name:       "retro",
		Field:      lipgloss.Color("#005500"),
		Nullclines: [2]lipgloss.Color{"#88ff88", "#ccff00"},
		Trajectory: lipgloss.Color("#00ff00"),
		Latest:     lipgloss.Color("#ffff00"),
		Fixed:      lipgloss.Color("#ffffff"),
		Cursor:     lipgloss.Color("#88ff88"),
		Axis:       lipgloss.Color("#003300"),
		Text:       lipgloss.Color("#00ff00"),
		Muted:      lipgloss.Color("#007700"),
		Error:      lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:       "minimal",
		Field:      lipgloss.Color("#555555"),
		Nullclines: [2]lipgloss.Color{"#ff5f5f", "#5fafff"},
		Trajectory: lipgloss.Color("#ffffff"),
		Latest:     lipgloss.Color("#0088ff"),
		Fixed:      lipgloss.Color("#ffaa00"),
		Cursor:     lipgloss.Color("#ffffff"),
		Axis:       lipgloss.Color("#333333"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#888888"),
		Error:      lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:       "ocean",
		Field:      lipgloss.Color("#224466"),
		Nullclines: [2]lipgloss.Color{"#ffd700", "#ff9ff3"},
		Trajectory: lipgloss.Color("#00a8cc"),
		Latest:     lipgloss.Color("#00ff88"),
		Fixed:      lipgloss.Color("#ff4444"),
		Cursor:     lipgloss.Color("#e0f0ff"),
		Axis:       lipgloss.Color("#113355"),
		Text:       lipgloss.Color("#e0f0ff"),
		Muted:      lipgloss.Color("#4488aa"),
		Error:      lipgloss.Color("#ff4444"),
	}

	DefaultTheme = ThemeCyberpunk

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name, or the default theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return DefaultTheme
}

// NextTheme returns the theme after t in Themes, wrapping around.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return DefaultTheme
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
