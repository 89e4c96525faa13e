package bot

import (
	"fmt"
	"strings"

	"github.com/mazznoer/colorgrad"
)

// GetBanner returns a colorized ASCII art banner
func GetBanner(version string) string {
	banner := `
 _              _       _                _
| |_  ___   ___| | ___ | |__   __ _  ___| | __
| __|/ _ \ / _ \ |/ __|| '_ \ / _' |/ __| |/ /
| |_| (_) | (_) | |\__ \| | | | (_| | (__|   <
 \__|\___/ \___/|_||___/|_| |_|\__,_|\___|_|\_\
 .  .  .  it  calls  the  tools  so  you  don't  have  to  [v` + version + `]
`
	grad, _ := colorgrad.NewGradient().
		HtmlColors("#f08a11ff", "#fdfdfdff").
		Build()

	lines := strings.Split(banner, "\n")

	// Find max line length for gradient spread
	maxLen := 0
	for _, line := range lines {
		if n := len([]rune(line)); n > maxLen {
			maxLen = n
		}
	}

	colors := grad.Colors(uint(maxLen))
	var coloredBanner strings.Builder

	for _, line := range lines {
		for i, ch := range []rune(line) {
			r, g, b, _ := colors[i].RGBA255()
			fmt.Fprintf(&coloredBanner, "\x1b[38;2;%d;%d;%dm%c", r, g, b, ch)
		}
		coloredBanner.WriteString("\x1b[0m\n")
	}

	return coloredBanner.String()
}
