package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/taskdeck/internal/models"
)

// Color constants for taskdeck TUI theme
const (
	// Base Colors
	ColorCardBackground = "#1B1530" // Dark purple
	ColorBorder         = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Primary text (field labels, user input, titles)
	ColorSecondaryText = "#B1B8C7" // Secondary text - subtle purple-tinted grey
	ColorDisabledText  = "#6D7383" // Disabled/muted text
	ColorPlaceholder   = "#B1B8C7"
	ColorHelpText      = "240" // Dark grey for help text

	// Accent Colors (Purple theme)
	ColorAccentMain   = "#7C3AED" // Logo, accent elements, active borders
	ColorAccentBright = "#A78BFA" // Hover, highlights, current field

	// State Colors
	ColorError   = "#EF4444" // Validation errors, failed requests
	ColorSuccess = "#22C55E" // Success, confirmations
	ColorWarning = "#F59E0B" // Warnings, due soon

	colorUnknown = "#757575"
)

var categoryColors = map[models.Category]string{
	models.CategoryWork:      "#1976D2",
	models.CategoryPersonal:  "#9C27B0",
	models.CategoryHealth:    "#2E7D32",
	models.CategoryEducation: "#ED6C02",
	models.CategoryShopping:  "#0288D1",
}

var priorityColors = map[int]string{
	1: "#9E9E9E",
	2: "#4CAF50",
	3: "#2196F3",
	4: "#FF9800",
	5: "#F44336",
}

// CategoryColor returns the display colour of a category
func CategoryColor(c models.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return colorUnknown
}

// PriorityColor returns the display colour of a priority
func PriorityColor(p int) string {
	if color, ok := priorityColors[p]; ok {
		return color
	}
	return colorUnknown
}

func categoryBadge(c models.Category) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(CategoryColor(c))).Render("● " + c.Label())
}

func priorityBadge(p int) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(PriorityColor(p))).Render(models.PriorityLabel(p))
}
