package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dvtools/dvbatch/internal/engine/batch"
)

// Box layout.
const (
	defaultBoxWidth  = 64
	minBoxWidth      = 40
	boxPaddingWidth  = 4
	narrowTermWidth  = 50
	layoutWidthRatio = 0.8
)

func boxBorderColor() lipgloss.Color { return lipgloss.Color("240") }
func boxTitleColor() lipgloss.Color  { return lipgloss.Color("39") }
func colorOK() lipgloss.Color        { return lipgloss.Color("42") }
func colorAborted() lipgloss.Color   { return lipgloss.Color("196") }
func colorMuted() lipgloss.Color     { return lipgloss.Color("246") }

// RunSummary is what the run command reports once the engine stops.
type RunSummary struct {
	Task      string
	State     string
	Total     int
	Processed int
	Mutated   int
	Duration  time.Duration
	LogPath   string

	// ArchiveKey is bucket/key of the uploaded mutation log, if any.
	ArchiveKey string

	AbortIndex int
	AbortPID   string
	AbortErr   error
}

func (s RunSummary) aborted() bool { return s.State == batch.StateAborted }

// RenderRunSummary writes the summary to w, styled when w is a terminal.
func RenderRunSummary(w io.Writer, s RunSummary) error {
	if isWriterTerminal(w) {
		return renderStyledSummary(w, s)
	}
	return renderPlainSummary(w, s)
}

// isWriterTerminal reports whether w is an *os.File attached to a terminal.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

func getTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		width, _, err := term.GetSize(int(f.Fd()))
		if err == nil && width > 0 {
			return width
		}
	}
	return defaultBoxWidth + boxPaddingWidth
}

func calculateBoxWidth(termWidth int) int {
	if termWidth < narrowTermWidth {
		return minBoxWidth
	}
	boxWidth := int(float64(termWidth) * layoutWidthRatio)
	boxWidth = min(boxWidth, defaultBoxWidth)
	boxWidth = max(boxWidth, minBoxWidth)
	return boxWidth
}

// summaryLines returns the body lines shared by both renderings.
func summaryLines(s RunSummary) []string {
	p := message.NewPrinter(language.English)

	lines := []string{
		p.Sprintf("Task:       %s", s.Task),
		p.Sprintf("Datasets:   %d", s.Total),
		p.Sprintf("Processed:  %d", s.Processed),
		p.Sprintf("Mutated:    %d", s.Mutated),
		p.Sprintf("Duration:   %s", s.Duration.Round(time.Millisecond)),
		p.Sprintf("Mutation log: %s", s.LogPath),
	}
	if s.ArchiveKey != "" {
		lines = append(lines, p.Sprintf("Archived to:  %s", s.ArchiveKey))
	}
	return lines
}

func abortLine(s RunSummary) string {
	return fmt.Sprintf("Stopped at dataset %d (%s): %v", s.AbortIndex+1, s.AbortPID, s.AbortErr)
}

func renderStyledSummary(w io.Writer, s RunSummary) error {
	boxWidth := calculateBoxWidth(getTerminalWidth(w))

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(boxTitleColor())
	borderStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(boxBorderColor()).
		Padding(0, 1).
		Width(boxWidth)

	stateColor := colorOK()
	if s.aborted() {
		stateColor = colorAborted()
	}
	stateStyle := lipgloss.NewStyle().Bold(true).Foreground(stateColor)

	var content strings.Builder
	content.WriteString(titleStyle.Render("BATCH RUN"))
	content.WriteString("  ")
	content.WriteString(stateStyle.Render(strings.ToUpper(s.State)))
	content.WriteString("\n")
	content.WriteString(strings.Repeat("─", boxWidth-boxPaddingWidth))
	content.WriteString("\n")
	content.WriteString(strings.Join(summaryLines(s), "\n"))

	if s.aborted() {
		content.WriteString("\n\n")
		content.WriteString(lipgloss.NewStyle().Foreground(colorAborted()).Render(abortLine(s)))
		content.WriteString("\n")
		content.WriteString(lipgloss.NewStyle().Italic(true).Foreground(colorMuted()).
			Render("Fix the cause and re-run; datasets already changed are skipped."))
	}

	_, err := fmt.Fprintln(w, borderStyle.Render(content.String()))
	return err
}

func renderPlainSummary(w io.Writer, s RunSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "BATCH RUN %s\n", strings.ToUpper(s.State))
	b.WriteString("=========\n")
	for _, line := range summaryLines(s) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if s.aborted() {
		b.WriteString(abortLine(s))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
