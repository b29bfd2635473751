package issueconsole

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	domainissue "issuetracker/internal/domain/issue"
)

const timeFormat = "2006-01-02 15:04"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1)
	activeTab     = tabStyle.Bold(true).Underline(true).Foreground(lipgloss.Color("63"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	badgeStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("0"))
)

func statusLabel(s domainissue.Status) string {
	switch s {
	case domainissue.StatusOpen:
		return "Open"
	case domainissue.StatusInProgress:
		return "In progress"
	case domainissue.StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

func statusBadge(s domainissue.Status) string {
	color := "245"
	switch s {
	case domainissue.StatusOpen:
		color = "42"
	case domainissue.StatusInProgress:
		color = "214"
	}
	return badgeStyle.Background(lipgloss.Color(color)).Render(statusLabel(s))
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Issues"))
	b.WriteString("\n\n")

	if m.screen == screenDetail {
		m.viewDetail(&b)
	} else {
		m.viewList(&b)
	}

	b.WriteString(sectionStyle.Render("Status"))
	b.WriteString("\n- ")
	b.WriteString(firstNonEmpty(m.status, "ready"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(m.helpText()))
	b.WriteString("\n")
	return b.String()
}

func (m *model) viewList(b *strings.Builder) {
	tabs := make([]string, 0, len(filterTabs))
	for i, tab := range filterTabs {
		if i == m.filter {
			tabs = append(tabs, activeTab.Render(tab.Label))
		} else {
			tabs = append(tabs, tabStyle.Render(tab.Label))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	if m.mode == modeCreate {
		b.WriteString(sectionStyle.Render("New issue"))
		b.WriteString("\n")
		m.viewForm(b)
	}

	switch {
	case m.list.IsError != nil && len(m.list.Issues) == 0:
		b.WriteString(errorStyle.Render("Failed to load issues: " + m.list.IsError.Error()))
		b.WriteString("\n\n")
		return
	case m.list.IsLoading && len(m.list.Issues) == 0:
		b.WriteString(dimStyle.Render("Loading..."))
		b.WriteString("\n\n")
		return
	case len(m.list.Issues) == 0:
		b.WriteString(dimStyle.Render("No issues found"))
		b.WriteString("\n\n")
		return
	}

	for i, item := range m.list.Issues {
		line := fmt.Sprintf("%s  %s", item.Title, dimStyle.Render(item.CreatedAt.Local().Format(timeFormat)))
		prefix := "  "
		if i == m.selected {
			prefix = selectedStyle.Render(">") + " "
		}
		b.WriteString(prefix + statusBadge(item.Status) + " " + line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *model) viewDetail(b *strings.Builder) {
	item := m.detail.Issue
	switch {
	case item == nil && m.detail.IsError != nil:
		b.WriteString(errorStyle.Render("Failed to load issue: " + m.detail.IsError.Error()))
		b.WriteString("\n\n")
		return
	case item == nil:
		b.WriteString(dimStyle.Render("Loading..."))
		b.WriteString("\n\n")
		return
	}

	if m.mode == modeEdit {
		b.WriteString(sectionStyle.Render("Edit issue"))
		b.WriteString("\n")
		m.viewForm(b)
	} else {
		b.WriteString(titleStyle.Render(item.Title))
		b.WriteString("  ")
		b.WriteString(statusBadge(item.Status))
		b.WriteString("\n\n")
		b.WriteString(item.Description)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(b, "ID: %s\n", item.ID)
	fmt.Fprintf(b, "Created: %s\n", item.CreatedAt.Local().Format(timeFormat))
	fmt.Fprintf(b, "Updated: %s\n\n", item.UpdatedAt.Local().Format(timeFormat))

	next := domainissue.Transitions(item.Status)
	labels := make([]string, 0, len(next))
	for _, s := range next {
		labels = append(labels, fmt.Sprintf("%s (%s)", statusLabel(s), m.transitionKey(s).Help().Key))
	}
	b.WriteString(sectionStyle.Render("Move to"))
	b.WriteString("\n- ")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString("\n\n")
}

func (m *model) transitionKey(s domainissue.Status) key.Binding {
	switch s {
	case domainissue.StatusOpen:
		return m.keys.SetOpen
	case domainissue.StatusInProgress:
		return m.keys.SetDoing
	default:
		return m.keys.SetDone
	}
}

func (m *model) viewForm(b *strings.Builder) {
	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *model) helpText() string {
	k := m.keys
	switch {
	case m.mode == modeCreate || m.mode == modeEdit:
		return helpLine(k.NextField, k.Submit, k.Cancel)
	case m.mode == modeConfirmDelete:
		return "y confirm  any other key cancel"
	case m.screen == screenDetail:
		return helpLine(k.Back, k.Edit, k.SetOpen, k.SetDoing, k.SetDone, k.Delete, k.Refresh, k.Quit)
	default:
		return helpLine(k.Up, k.Down, k.NextFilter, k.Open, k.New, k.Refresh, k.Quit)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
