package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  ______      _     _      ", "#818cf8"},
	{" |  ____|    | |   | |     ", "#a78bfa"},
	{" | |__ __ _  | |__ | | ___ ", "#c084fc"},
	{" |  __/ _` | | '_ \\| |/ _ \\", "#e879f9"},
	{" | | | (_| | | |_) | |  __/", "#f472b6"},
	{" |_|  \\__,_| |_.__/|_|\\___|", "#fb7185"},
}

// PrintBanner writes the ASCII art banner of Fable in the colors the terminal supports.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w)
}
