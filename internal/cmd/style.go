package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(10)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// runSummary is what the run command reports once the outcome is known
type runSummary struct {
	Host     string
	Command  string
	Duration time.Duration
	Result   *ssh.Result
	Err      error
}

func summaryLine(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

// renderSummary renders the outcome of one invocation as a bordered box
func renderSummary(s runSummary) string {
	var lines []string

	switch {
	case s.Err != nil:
		lines = append(lines, failureStyle.Render("FAILED")+" "+mutedStyle.Render(ssh.Kind(s.Err)))
	case s.Result != nil && s.Result.ExitStatus != nil && *s.Result.ExitStatus != 0:
		lines = append(lines, failureStyle.Render(fmt.Sprintf("EXIT %d", *s.Result.ExitStatus)))
	case killedBySignal(s.Result):
		lines = append(lines, failureStyle.Render("KILLED")+" "+mutedStyle.Render(s.Result.ExitSignal))
	default:
		lines = append(lines, successStyle.Render("OK"))
	}

	lines = append(lines,
		summaryLine("host", s.Host),
		summaryLine("command", truncate(s.Command, 60)),
		summaryLine("duration", s.Duration.Round(time.Millisecond).String()),
	)

	if s.Err != nil {
		lines = append(lines, summaryLine("error", s.Err.Error()))
	}

	if s.Result != nil {
		lines = append(lines,
			summaryLine("stdout", fmt.Sprintf("%d bytes", len(s.Result.Stdout))),
			summaryLine("stderr", fmt.Sprintf("%d bytes", len(s.Result.Stderr))),
		)
		if s.Result.ExitSignal != "" {
			lines = append(lines, summaryLine("signal", s.Result.ExitSignal))
		}
	}

	return summaryStyle.Render(strings.Join(lines, "\n"))
}

// truncate shortens s to at most limit runes
func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
