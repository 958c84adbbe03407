package tui

import "github.com/charmbracelet/lipgloss"

// Oxocarbon color scheme - IBM Carbon inspired
var (
	oxocarbonBase01 = lipgloss.Color("#393939")
	oxocarbonBase02 = lipgloss.Color("#525252")
	oxocarbonBase03 = lipgloss.Color("#767676")
	oxocarbonBase04 = lipgloss.Color("#dde1e6")
	oxocarbonBase05 = lipgloss.Color("#f2f4f8")
	oxocarbonWhite  = lipgloss.Color("#ffffff")

	oxocarbonBlue   = lipgloss.Color("#78a9ff")
	oxocarbonPink   = lipgloss.Color("#ee5396")
	oxocarbonGreen  = lipgloss.Color("#42be65")
	oxocarbonPurple = lipgloss.Color("#be95ff")
	oxocarbonMauve  = lipgloss.Color("#d1aaff")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(oxocarbonWhite).
			Background(oxocarbonPurple).
			Padding(0, 1).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(oxocarbonMauve).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(oxocarbonBase03).
			Italic(true)

	itemStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(oxocarbonBase02).
			BorderLeft(true).
			BorderTop(false).
			BorderRight(false).
			BorderBottom(false).
			PaddingLeft(2).
			PaddingRight(2).
			MarginLeft(1)

	itemSelectedStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.ThickBorder()).
				BorderForeground(oxocarbonPurple).
				BorderLeft(true).
				BorderTop(false).
				BorderRight(false).
				BorderBottom(false).
				PaddingLeft(2).
				PaddingRight(2).
				MarginLeft(1)

	itemTitleStyle = lipgloss.NewStyle().
			Foreground(oxocarbonBase05).
			Bold(true)

	metadataStyle = lipgloss.NewStyle().
			Foreground(oxocarbonBase04)

	statusBadgeStyle = lipgloss.NewStyle().
				Bold(true)
)
