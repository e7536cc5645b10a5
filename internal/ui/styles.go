package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/lipgloss"

	"github.com/docchat/chatmarkup/internal/markup"
)

// Theme defines the color palette for terminal output
type Theme struct {
	Primary   lipgloss.Color // element blocks (tables, reports, citations)
	Secondary lipgloss.Color // headings
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color // quotes
	Muted     lipgloss.Color // dimmed/secondary text
	Text      lipgloss.Color // primary text
}

// DefaultTheme returns the default color theme (gruvbox)
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#b8bb26"), // gruvbox green
		Secondary: lipgloss.Color("#83a598"), // gruvbox aqua
		Success:   lipgloss.Color("#b8bb26"), // gruvbox green
		Error:     lipgloss.Color("#fb4934"), // gruvbox red
		Warning:   lipgloss.Color("#fabd2f"), // gruvbox yellow
		Muted:     lipgloss.Color("#928374"), // gruvbox gray
		Text:      lipgloss.Color("#ebdbb2"), // gruvbox foreground
	}
}

var currentTheme = DefaultTheme()

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	renderer *lipgloss.Renderer
	theme    *Theme

	Title   lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Index   lipgloss.Style
	Heading lipgloss.Style
	Quote   lipgloss.Style
	Element lipgloss.Style // blocks that become custom elements
	Plain   lipgloss.Style
}

// NewStyles creates a new Styles instance for the given output. Color is only
// emitted when output is a terminal.
func NewStyles(output io.Writer) *Styles {
	return NewStylesWithTheme(output, currentTheme)
}

// NewStylesWithTheme creates styles with a specific theme
func NewStylesWithTheme(output io.Writer, theme *Theme) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,
		theme:    theme,

		Title: r.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		Muted: r.NewStyle().
			Foreground(theme.Muted),

		Error: r.NewStyle().
			Foreground(theme.Error),

		Index: r.NewStyle().
			Foreground(theme.Muted),

		Heading: r.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Quote: r.NewStyle().
			Italic(true).
			Foreground(theme.Warning),

		Element: r.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Plain: r.NewStyle().
			Foreground(theme.Text),
	}
}

// DefaultStyles returns styles for stdout
func DefaultStyles() *Styles {
	return NewStyles(os.Stdout)
}

// Theme returns the theme used by these styles
func (s *Styles) Theme() *Theme {
	return s.theme
}

// KindStyle picks the label style for a block kind.
func (s *Styles) KindStyle(kind markup.BlockKind) lipgloss.Style {
	switch kind {
	case markup.KindHeading:
		return s.Heading
	case markup.KindQuote:
		return s.Quote
	case markup.KindTable, markup.KindReport, markup.KindTableCitation:
		return s.Element
	case markup.KindDivider:
		return s.Muted
	default:
		return s.Plain
	}
}

// GlamourStyle returns a glamour StyleConfig based on the current theme
func GlamourStyle() ansi.StyleConfig {
	return GlamourStyleFromTheme(currentTheme)
}

// GlamourStyleFromTheme creates a glamour StyleConfig from the given theme
func GlamourStyleFromTheme(theme *Theme) ansi.StyleConfig {
	primary := string(theme.Primary)
	secondary := string(theme.Secondary)
	success := string(theme.Success)
	warning := string(theme.Warning)
	muted := string(theme.Muted)
	text := string(theme.Text)

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: &text,
			},
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color:  &warning,
				Italic: boolPtr(true),
			},
			Indent:      uintPtr(1),
			IndentToken: stringPtr("│ "),
		},
		Paragraph: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: &text,
			},
		},
		List: ansi.StyleList{
			LevelIndent: 2,
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{
					Color: &text,
				},
			},
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       &secondary,
				Bold:        boolPtr(true),
			},
		},
		H1: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "# "}},
		H2: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "## "}},
		H3: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "### "}},
		H4: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "#### "}},
		H5: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "##### "}},
		H6: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "###### "}},
		Emph: ansi.StylePrimitive{
			Italic: boolPtr(true),
		},
		Strong: ansi.StylePrimitive{
			Bold:  boolPtr(true),
			Color: &primary,
		},
		HorizontalRule: ansi.StylePrimitive{
			Color:  &muted,
			Format: "\n--------\n",
		},
		Item: ansi.StylePrimitive{
			BlockPrefix: "• ",
		},
		Enumeration: ansi.StylePrimitive{
			BlockPrefix: ". ",
			Color:       &secondary,
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: &primary,
			},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{
					Color: &text,
				},
			},
			Chroma: &ansi.Chroma{
				Text:          ansi.StylePrimitive{Color: &text},
				Comment:       ansi.StylePrimitive{Color: &muted},
				Keyword:       ansi.StylePrimitive{Color: &primary},
				KeywordType:   ansi.StylePrimitive{Color: &secondary},
				NameBuiltin:   ansi.StylePrimitive{Color: &secondary},
				NameFunction:  ansi.StylePrimitive{Color: &success},
				LiteralNumber: ansi.StylePrimitive{Color: &secondary},
				LiteralString: ansi.StylePrimitive{Color: &warning},
			},
		},
		Table: ansi.StyleTable{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{},
			},
			CenterSeparator: stringPtr("┼"),
			ColumnSeparator: stringPtr("│"),
			RowSeparator:    stringPtr("─"),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func uintPtr(u uint) *uint {
	return &u
}

func stringPtr(s string) *string {
	return &s
}
