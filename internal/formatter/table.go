package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kohaku-io/agora/internal/discussion"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) FormatStatuses(statuses []*discussion.Status) (string, error) {
	if len(statuses) == 0 {
		return "No discussions found", nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers("ID", "Topic", "Participants", "Round", "Status", "Started")

	for _, st := range statuses {
		status := "active"
		if !st.Active {
			status = "ended"
		}
		t.Row(
			st.ID,
			truncateString(st.Topic, 40),
			truncateString(strings.Join(st.Participants, ", "), 25),
			strconv.Itoa(st.CurrentRound),
			status,
			st.StartedAt,
		)
	}

	return t.String(), nil
}

func (f *TableFormatter) FormatStatus(st *discussion.Status) (string, error) {
	if st == nil {
		return "No discussion found", nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	status := "active"
	if !st.Active {
		status = "ended"
	}

	t.Row("ID", st.ID)
	t.Row("Topic", truncateString(st.Topic, 60))
	t.Row("Participants", strings.Join(st.Participants, ", "))
	t.Row("Round", strconv.Itoa(st.CurrentRound))
	t.Row("Status", status)
	t.Row("Messages", strconv.Itoa(st.Messages))
	t.Row("Started", st.StartedAt)
	if st.EndedAt != "" {
		t.Row("Ended", st.EndedAt)
		t.Row("Decision", truncateString(st.Decision, 60))
		t.Row("Consensus", fmt.Sprintf("%t", st.Consensus))
	}
	if wd := st.Context["workingDir"]; wd != "" {
		t.Row("Working dir", wd)
	}

	return t.String(), nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
