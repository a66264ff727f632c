package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/pipeline"
	"github.com/Veraticus/local-guide/internal/service"
	"github.com/charmbracelet/lipgloss"
)

// RenderResponse renders an answer or a refusal. With verbose set, refusals
// carry their diagnostic reason.
func RenderResponse(resp model.Response, verbose bool) string {
	if !resp.IsRefusal {
		return AnswerStyle.Render(resp.Text)
	}

	body := RefusalIcon + " " + resp.Text
	if verbose && resp.RefusalReason != model.ReasonNone {
		reason := string(resp.RefusalReason)
		if resp.Detail != "" {
			reason += ": " + resp.Detail
		}
		body += "\n" + SubtleStyle.Render(reason)
	}
	return RefusalStyle.Render(body)
}

// RenderStats renders session counters.
func RenderStats(stats model.Stats) string {
	rows := [][2]string{
		{"City", displayCity(stats.City)},
		{"Queries", fmt.Sprint(stats.Total)},
		{"In scope", fmt.Sprint(stats.Accepted)},
		{"Answered", fmt.Sprint(stats.Answered)},
		{"Refused", fmt.Sprint(stats.Refused)},
		{"Refusal rate", fmt.Sprintf("%.0f%%", stats.RefusalRate()*100)},
	}
	if !stats.FirstQueryAt.IsZero() {
		rows = append(rows,
			[2]string{"First query", stats.FirstQueryAt.Format(time.Kitchen)},
			[2]string{"Last query", stats.LastQueryAt.Format(time.Kitchen)})
	}
	return RenderBox(ChartIcon+" Session stats", renderPairs(rows))
}

// RenderHealth renders the per-component health report.
func RenderHealth(h pipeline.Health) string {
	var b strings.Builder
	for _, c := range h.Components {
		line := fmt.Sprintf("%s %-10s", healthIcon(c.Status), c.Name)
		if c.Detail != "" {
			line += " " + SubtleStyle.Render(c.Detail)
		}
		b.WriteString(line + "\n")
	}
	return RenderBox(fmt.Sprintf("System %s", healthStyle(h.Status).Render(string(h.Status))), strings.TrimRight(b.String(), "\n"))
}

// RenderSessions renders persisted sessions as a table.
func RenderSessions(sessions []service.SessionRecord) string {
	if len(sessions) == 0 {
		return SubtleStyle.Render("No sessions recorded yet.")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		TableHeaderStyle.Width(38).Render("Session"),
		TableHeaderStyle.Width(12).Render("City"),
		TableHeaderStyle.Render("Last active"))

	lines := []string{header}
	for _, s := range sessions {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			TableCellStyle.Width(38).Render(s.ID),
			TableCellStyle.Width(12).Render(displayCity(s.City)),
			TableCellStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04"))))
	}
	return strings.Join(lines, "\n")
}

// RenderHistory renders a session's interactions.
func RenderHistory(history []model.Interaction) string {
	if len(history) == 0 {
		return SubtleStyle.Render("No interactions recorded.")
	}
	parts := make([]string, 0, len(history))
	for _, in := range history {
		q := BoldStyle.Render(fmt.Sprintf("%d. %s", in.Seq, in.Query.Text))
		parts = append(parts, q+"\n"+RenderResponse(in.Response, true))
	}
	return strings.Join(parts, "\n\n")
}

func renderPairs(rows [][2]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(TableCellStyle.Width(14).Render(r[0]))
		b.WriteString(BoldStyle.Render(r[1]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayCity(c model.City) string {
	if c == "" {
		return "none"
	}
	return c.Title()
}

func healthIcon(s pipeline.HealthStatus) string {
	switch s {
	case pipeline.HealthHealthy:
		return SuccessStyle.Render(SuccessIcon)
	case pipeline.HealthWarning:
		return WarningStyle.Render("!")
	default:
		return ErrorStyle.Render(ErrorIcon)
	}
}

func healthStyle(s pipeline.HealthStatus) lipgloss.Style {
	switch s {
	case pipeline.HealthHealthy:
		return SuccessStyle
	case pipeline.HealthWarning:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
