package layout

// LayoutConfig holds all layout-related configuration values.
type LayoutConfig struct {
	List    ListConfig
	Preview PreviewConfig
	Modal   ModalConfig
	Input   InputConfig
	Text    TextConfig
}

// ListConfig holds item list dimension configuration.
type ListConfig struct {
	// HeightReduction is subtracted from terminal height for list content.
	// Accounts for: app padding (1) + header (2) + pane borders (2) + status (1) + help bar (1) = 7
	HeightReduction int

	// MinHeight is the minimum list height.
	MinHeight int

	// ContentPadding is subtracted from pane width for row rendering.
	// Accounts for pane border/padding on each side.
	ContentPadding int

	// MinWidth is the minimum list pane width.
	MinWidth int
}

// PreviewConfig holds thumbnail preview pane configuration.
type PreviewConfig struct {
	// WidthPercent is the preview share of the terminal width.
	WidthPercent int

	// MinTerminalWidth hides the preview below this terminal width.
	MinTerminalWidth int

	// MaxWidth caps the preview width in cells.
	MaxWidth int

	// DetailLines are reserved under the image for title, URL and tags.
	DetailLines int
}

// ModalConfig holds modal dialog configuration.
type ModalConfig struct {
	// DefaultWidthPercent is the standard modal width as percentage of terminal width.
	DefaultWidthPercent int

	// MinWidth is the minimum modal width in characters.
	MinWidth int

	// MaxWidth is the maximum modal width in characters.
	MaxWidth int

	// HelpLeftColumnWidth: width for help overlay key column.
	HelpLeftColumnWidth int
}

// InputConfig holds text input configuration.
type InputConfig struct {
	SearchCharLimit int
	SearchWidth     int
}

// TextConfig holds text truncation configuration.
type TextConfig struct {
	// Ellipsis is the string used to indicate truncation.
	Ellipsis string
}

// DefaultConfig returns the default layout configuration.
func DefaultConfig() LayoutConfig {
	return LayoutConfig{
		List: ListConfig{
			HeightReduction: 7, // app padding (1) + header (2) + pane borders (2) + status (1) + help bar (1)
			MinHeight:       3,
			ContentPadding:  4,
			MinWidth:        30,
		},
		Preview: PreviewConfig{
			WidthPercent:     40,
			MinTerminalWidth: 90,
			MaxWidth:         60,
			DetailLines:      4,
		},
		Modal: ModalConfig{
			DefaultWidthPercent: 40,
			MinWidth:            40,
			MaxWidth:            70,
			HelpLeftColumnWidth: 16,
		},
		Input: InputConfig{
			SearchCharLimit: 100,
			SearchWidth:     40,
		},
		Text: TextConfig{
			Ellipsis: "...",
		},
	}
}
