package aggregate

// DefaultColor is used for categories missing from Palette.
const DefaultColor = "#999999"

// Palette maps the built-in categories to chart colors.
var Palette = map[string]string{
	"Food":     "#FF6384",
	"Rent":     "#36A2EB",
	"Travel":   "#FFCE56",
	"Shopping": "#9966FF",
	"Bills":    "#4BC0C0",
	"Other":    "#C9CBCF",
}

// ColorFor returns the chart color of category.
func ColorFor(category string) string {
	if c, ok := Palette[category]; ok {
		return c
	}
	return DefaultColor
}
