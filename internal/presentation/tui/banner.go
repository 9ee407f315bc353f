package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"           _           _           ",
	" _ __ ___ (_)___ ___ (_)_   _____ ",
	"| '_ ` _ \\| / __/ __|| \\ \\ / / _ \\",
	"| | | | | | \\__ \\__ \\| |\\ V /  __/",
	"|_| |_| |_|_|___/___/|_| \\_/ \\___|",
}

var bannerColors = []string{"#38bdf8", "#60a5fa", "#818cf8", "#a78bfa", "#c084fc"}

// PrintBanner writes the startup banner followed by a short hint line.
// Colors degrade to what the terminal supports, down to none.
func PrintBanner(w io.Writer, hint string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	if hint != "" {
		fmt.Fprintln(w, out.String(hint).Faint())
	}
	fmt.Fprintln(w)
}
