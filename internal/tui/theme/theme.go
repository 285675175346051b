// Package theme defines the color roles of the fintrack terminal client.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme maps every color role the client draws with to a concrete color.
type Theme struct {
	Name string

	Background    lipgloss.Color // Main app background
	Surface       lipgloss.Color // Cards, bars and overlays
	SurfaceActive lipgloss.Color // Active tab

	TextPrimary lipgloss.Color
	TextMuted   lipgloss.Color // Labels, metadata
	TextDim     lipgloss.Color // Hints, separators

	Border       lipgloss.Color // Resting card borders
	BorderFocus  lipgloss.Color // Dialogs and the sign-in card
	Accent       lipgloss.Color // Current path, active tab key
	AccentBright lipgloss.Color // Titles
	Key          lipgloss.Color // Key hints in help and settings

	// Route transitions. The outgoing screen is drawn faint in the Exiting
	// colors; the incoming one is framed in the Entering colors.
	ExitingBorder  lipgloss.Color
	ExitingTitle   lipgloss.Color
	EnteringBorder lipgloss.Color
	EnteringTitle  lipgloss.Color

	Toast     lipgloss.Color // Toast border and marker
	ToastText lipgloss.Color
	Error     lipgloss.Color // Status bar errors
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default theme, warm ink on dark paper.
var FlexokiDark = Theme{
	Name:           "flexoki-dark",
	Background:     lipgloss.Color("#100F0F"),
	Surface:        lipgloss.Color("#1C1B1A"),
	SurfaceActive:  lipgloss.Color("#282726"),
	TextPrimary:    lipgloss.Color("#FFFCF0"),
	TextMuted:      lipgloss.Color("#878580"),
	TextDim:        lipgloss.Color("#575653"),
	Border:         lipgloss.Color("#403E3C"),
	BorderFocus:    lipgloss.Color("#3AA99F"),
	Accent:         lipgloss.Color("#3AA99F"),
	AccentBright:   lipgloss.Color("#5BC8BE"),
	Key:            lipgloss.Color("#24837B"),
	ExitingBorder:  lipgloss.Color("#343331"),
	ExitingTitle:   lipgloss.Color("#575653"),
	EnteringBorder: lipgloss.Color("#3AA99F"),
	EnteringTitle:  lipgloss.Color("#5BC8BE"),
	Toast:          lipgloss.Color("#D0A215"),
	ToastText:      lipgloss.Color("#FFFCF0"),
	Error:          lipgloss.Color("#D14D41"),
}

// FlexokiLight is the light paper variant of FlexokiDark.
var FlexokiLight = Theme{
	Name:           "flexoki-light",
	Background:     lipgloss.Color("#FFFCF0"),
	Surface:        lipgloss.Color("#F2F0E5"),
	SurfaceActive:  lipgloss.Color("#E6E4D9"),
	TextPrimary:    lipgloss.Color("#100F0F"),
	TextMuted:      lipgloss.Color("#6F6E69"),
	TextDim:        lipgloss.Color("#B7B5AC"),
	Border:         lipgloss.Color("#DAD8CE"),
	BorderFocus:    lipgloss.Color("#24837B"),
	Accent:         lipgloss.Color("#24837B"),
	AccentBright:   lipgloss.Color("#1C6C66"),
	Key:            lipgloss.Color("#205EA6"),
	ExitingBorder:  lipgloss.Color("#E6E4D9"),
	ExitingTitle:   lipgloss.Color("#B7B5AC"),
	EnteringBorder: lipgloss.Color("#24837B"),
	EnteringTitle:  lipgloss.Color("#1C6C66"),
	Toast:          lipgloss.Color("#AD8301"),
	ToastText:      lipgloss.Color("#100F0F"),
	Error:          lipgloss.Color("#AF3029"),
}

// Terminal sticks to the ANSI 16 colors.
var Terminal = Theme{
	Name:           "terminal",
	Background:     lipgloss.Color("0"),
	Surface:        lipgloss.Color("0"),
	SurfaceActive:  lipgloss.Color("8"),
	TextPrimary:    lipgloss.Color("15"),
	TextMuted:      lipgloss.Color("7"),
	TextDim:        lipgloss.Color("8"),
	Border:         lipgloss.Color("8"),
	BorderFocus:    lipgloss.Color("6"),
	Accent:         lipgloss.Color("6"),
	AccentBright:   lipgloss.Color("14"),
	Key:            lipgloss.Color("12"),
	ExitingBorder:  lipgloss.Color("8"),
	ExitingTitle:   lipgloss.Color("8"),
	EnteringBorder: lipgloss.Color("6"),
	EnteringTitle:  lipgloss.Color("14"),
	Toast:          lipgloss.Color("3"),
	ToastText:      lipgloss.Color("15"),
	Error:          lipgloss.Color("1"),
}

// All available themes.
var All = []Theme{FlexokiDark, FlexokiLight, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// Names lists the available theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}
