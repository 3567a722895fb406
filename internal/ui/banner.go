package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Version is printed in the banner and the /health response.
const Version = "1.0.0"

// PrintBanner displays the ASCII art startup banner.
func PrintBanner() {
	fmt.Fprintln(out)

	cyan := color.New(color.FgCyan, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	magenta := color.New(color.FgMagenta, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	rows := [][2]string{
		{" ██████╗ █████╗ ██████╗ ███████╗███████╗██████╗ ", "██████╗ ██████╗ ██╗██████╗  ██████╗ ███████╗"},
		{"██╔════╝██╔══██╗██╔══██╗██╔════╝██╔════╝██╔══██╗", "██╔══██╗██╔══██╗██║██╔══██╗██╔════╝ ██╔════╝"},
		{"██║     ███████║██████╔╝█████╗  █████╗  ██████╔╝", "██████╔╝██████╔╝██║██║  ██║██║  ███╗█████╗  "},
		{"██║     ██╔══██║██╔══██╗██╔══╝  ██╔══╝  ██╔══██╗", "██╔══██╗██╔══██╗██║██║  ██║██║   ██║██╔══╝  "},
		{"╚██████╗██║  ██║██║  ██║███████╗███████╗██║  ██║", "██████╔╝██║  ██║██║██████╔╝╚██████╔╝███████╗"},
		{" ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝", "╚═════╝ ╚═╝  ╚═╝╚═╝╚═════╝  ╚═════╝ ╚══════╝"},
	}

	cyan.Fprintln(out, "╔════════════════════════════════════════════════════════════════════════════════════════════════╗")
	for _, row := range rows {
		cyan.Fprint(out, "║  ")
		hiCyan.Fprint(out, row[0])
		magenta.Fprint(out, row[1])
		cyan.Fprintln(out, " ║")
	}
	cyan.Fprintln(out, "╠════════════════════════════════════════════════════════════════════════════════════════════════╣")

	cyan.Fprint(out, "║  ")
	yellow.Fprint(out, "🎯 AI CAREER GUIDANCE API")
	dim.Fprint(out, "  │  ")
	magenta.Fprint(out, "GEMINI + GROQ")
	dim.Fprint(out, "  │  ")
	white.Fprintf(out, "v%-43s", Version)
	cyan.Fprintln(out, "║")

	cyan.Fprintln(out, "╚════════════════════════════════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
}
