package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kadirbelkuyu/crashmon/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BE9FD"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))
)

func renderReportList(appName string, reports []domain.CrashReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s crash reports", appName)))
	b.WriteString("\n\n")

	if len(reports) == 0 {
		b.WriteString(dimStyle.Render("No crash reports."))
		b.WriteString("\n")
		return b.String()
	}

	for _, r := range reports {
		b.WriteString(renderReportLine(r))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d report(s)", len(reports))))
	b.WriteString("\n")
	return b.String()
}

func renderReportLine(r domain.CrashReport) string {
	status := successStyle.Render("formatted")
	if !r.HasFormattedText() {
		status = warningStyle.Render("unformatted")
	}

	return fmt.Sprintf("%s  %s  %s",
		infoStyle.Render(fmt.Sprintf("%016x", uint64(r.ID))),
		r.Summary(),
		status,
	)
}

func renderError(msg string) string {
	return errorStyle.Render(msg)
}
