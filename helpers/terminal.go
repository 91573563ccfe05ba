package helpers

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))             // green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))            // yellow
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))           // grey
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

var colorEnabled = detectColorSupport()

func detectColorSupport() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if runtime.GOOS == "windows" && os.Getenv("WT_SESSION") == "" && os.Getenv("TERM_PROGRAM") != "vscode" {
		return false
	}
	return IsTerminal(os.Stdout)
}

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func SupportsColor() bool {
	return colorEnabled
}

func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

func colorize(style lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return style.Render(text)
}

func FSuccess(text string) string { return colorize(successStyle, text) }
func FError(text string) string   { return colorize(errorStyle, text) }
func FWarning(text string) string { return colorize(warningStyle, text) }
func FInfo(text string) string    { return colorize(infoStyle, text) }
func FDetail(text string) string  { return colorize(detailStyle, text) }
func FHeader(text string) string  { return colorize(headerStyle, text) }

func PrintSuccess(w io.Writer, text string) { fmt.Fprintln(w, FSuccess(text)) }
func PrintError(w io.Writer, text string)   { fmt.Fprintln(w, FError(text)) }
func PrintWarning(w io.Writer, text string) { fmt.Fprintln(w, FWarning(text)) }
func PrintInfo(w io.Writer, text string)    { fmt.Fprintln(w, FInfo(text)) }
func PrintDetail(w io.Writer, text string)  { fmt.Fprintln(w, FDetail(text)) }
func PrintHeader(w io.Writer, text string)  { fmt.Fprintln(w, FHeader(text)) }

func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
