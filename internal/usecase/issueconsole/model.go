// Package issueconsole is the terminal UI: an issue list with status
// filter tabs and a create form, and a detail view with edit, status
// transitions and delete. All reads go through the data cache; writes go
// through issueclient.Mutations so the views only ever show refetched data.
package issueconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"issuetracker/internal/bootstrap/logging"
	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/interfaces/httpapi"
	"issuetracker/internal/usecase/datacache"
	"issuetracker/internal/usecase/issueclient"
)

type filterTab struct {
	Label  string
	Status string
}

var filterTabs = []filterTab{
	{Label: "All", Status: ""},
	{Label: "Open", Status: string(domainissue.StatusOpen)},
	{Label: "In progress", Status: string(domainissue.StatusInProgress)},
	{Label: "Done", Status: string(domainissue.StatusDone)},
}

type screen int

const (
	screenList screen = iota
	screenDetail
)

type mode int

const (
	modeBrowse mode = iota
	modeCreate
	modeEdit
	modeConfirmDelete
)

const (
	fieldTitle = iota
	fieldDescription
)

type Options struct {
	// Status preselects a filter tab. Empty means all.
	Status string
}

type model struct {
	ctx   context.Context
	cache *datacache.Cache
	muts  *issueclient.Mutations
	keys  KeyMap

	screen   screen
	mode     mode
	filter   int
	list     issueclient.IssuesResult
	selected int
	detailID string
	detail   issueclient.IssueResult
	inputs   []textinput.Model
	focus    int
	busy     bool
	status   string
}

type listLoadedMsg struct {
	key string
	res issueclient.IssuesResult
	err error
}

type detailLoadedMsg struct {
	id  string
	res issueclient.IssueResult
	err error
}

type writeDoneMsg struct {
	action string
	issue  domainissue.Issue
	err    error
}

func NewModel(ctx context.Context, cache *datacache.Cache, muts *issueclient.Mutations, options Options) tea.Model {
	m := &model{
		ctx:    logging.WithAttrs(ctx, slog.String("component", "console")),
		cache:  cache,
		muts:   muts,
		keys:   DefaultKeyMap(),
		inputs: newInputs(),
		status: "loading",
	}
	want := string(domainissue.NormalizeStatus(options.Status))
	for i, tab := range filterTabs {
		if tab.Status == want {
			m.filter = i
		}
	}
	return m
}

func newInputs() []textinput.Model {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 200
	title.Prompt = "Title: "

	description := textinput.New()
	description.Placeholder = "Description"
	description.CharLimit = 2000
	description.Prompt = "Description: "

	return []textinput.Model{title, description}
}

func (m *model) Init() tea.Cmd {
	return m.loadListCmd(false)
}

func (m *model) listQuery() issueclient.IssuesQuery {
	return issueclient.UseIssues(m.cache, filterTabs[m.filter].Status)
}

func (m *model) detailQuery() issueclient.IssueQuery {
	return issueclient.UseIssue(m.cache, m.detailID)
}

func (m *model) loadListCmd(force bool) tea.Cmd {
	q := m.listQuery()
	ctx := m.ctx
	return func() tea.Msg {
		load := q.Load
		if force {
			load = q.Mutate
		}
		res, err := load(ctx)
		return listLoadedMsg{key: q.Key(), res: res, err: err}
	}
}

func (m *model) loadDetailCmd(force bool) tea.Cmd {
	q := m.detailQuery()
	id := m.detailID
	ctx := m.ctx
	return func() tea.Msg {
		load := q.Load
		if force {
			load = q.Mutate
		}
		res, err := load(ctx)
		return detailLoadedMsg{id: id, res: res, err: err}
	}
}

func (m *model) createCmd(title, description string) tea.Cmd {
	ctx := m.ctx
	muts := m.muts
	return func() tea.Msg {
		created, err := muts.CreateIssue(ctx, httpapi.CreateIssueRequest{Title: title, Description: description})
		return writeDoneMsg{action: "create", issue: created, err: err}
	}
}

func (m *model) updateCmd(action string, req httpapi.UpdateIssueRequest) tea.Cmd {
	ctx := m.ctx
	muts := m.muts
	id := m.detailID
	return func() tea.Msg {
		updated, err := muts.UpdateIssue(ctx, id, req)
		return writeDoneMsg{action: action, issue: updated, err: err}
	}
}

func (m *model) deleteCmd() tea.Cmd {
	ctx := m.ctx
	muts := m.muts
	id := m.detailID
	return func() tea.Msg {
		err := muts.DeleteIssue(ctx, id)
		return writeDoneMsg{action: "delete", issue: domainissue.Issue{ID: id}, err: err}
	}
}

func (m *model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case listLoadedMsg:
		if msg.key != m.listQuery().Key() {
			return m, nil
		}
		m.list = msg.res
		if m.selected >= len(m.list.Issues) {
			m.selected = len(m.list.Issues) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
		} else if m.screen == screenList && !m.busy {
			m.status = fmt.Sprintf("%d issues", len(m.list.Issues))
		}
		return m, nil
	case detailLoadedMsg:
		if msg.id != m.detailID {
			return m, nil
		}
		m.detail = msg.res
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
		}
		return m, nil
	case writeDoneMsg:
		return m.handleWriteDone(msg)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeCreate, modeEdit:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		if m.screen == screenDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *model) handleWriteDone(msg writeDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.status = msg.action + " failed: " + msg.err.Error()
		return m, nil
	}

	switch msg.action {
	case "create":
		m.mode = modeBrowse
		m.resetInputs()
		m.status = "created " + msg.issue.Title
		return m, m.loadListCmd(false)
	case "delete":
		m.mode = modeBrowse
		m.screen = screenList
		m.detailID = ""
		m.detail = issueclient.IssueResult{}
		m.status = "deleted"
		return m, m.loadListCmd(false)
	default:
		m.mode = modeBrowse
		m.resetInputs()
		m.status = msg.action + " saved"
		return m, tea.Batch(m.loadDetailCmd(false), m.loadListCmd(false))
	}
}

func (m *model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.list.Issues)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.NextFilter):
		m.filter = (m.filter + 1) % len(filterTabs)
		return m.switchFilter()
	case key.Matches(msg, m.keys.PrevFilter):
		m.filter = (m.filter + len(filterTabs) - 1) % len(filterTabs)
		return m.switchFilter()
	case key.Matches(msg, m.keys.Refresh):
		m.status = "refreshing"
		return m, m.loadListCmd(true)
	case key.Matches(msg, m.keys.New):
		m.mode = modeCreate
		m.resetInputs()
		return m, m.focusInput(fieldTitle)
	case key.Matches(msg, m.keys.Open):
		if len(m.list.Issues) == 0 {
			return m, nil
		}
		item := m.list.Issues[m.selected]
		m.screen = screenDetail
		m.detailID = item.ID
		m.detail = m.detailQuery().Current()
		return m, m.loadDetailCmd(false)
	}
	return m, nil
}

func (m *model) switchFilter() (tea.Model, tea.Cmd) {
	m.selected = 0
	m.list = m.listQuery().Current()
	m.status = "filter " + filterTabs[m.filter].Label
	return m, m.loadListCmd(false)
}

func (m *model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	current := m.detail.Issue
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.screen = screenList
		m.detailID = ""
		m.detail = issueclient.IssueResult{}
		return m, m.loadListCmd(false)
	case key.Matches(msg, m.keys.Refresh):
		m.status = "refreshing"
		return m, m.loadDetailCmd(true)
	}

	if current == nil || m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Edit):
		m.mode = modeEdit
		m.inputs[fieldTitle].SetValue(current.Title)
		m.inputs[fieldDescription].SetValue(current.Description)
		return m, m.focusInput(fieldTitle)
	case key.Matches(msg, m.keys.Delete):
		m.mode = modeConfirmDelete
		m.status = "delete this issue? y to confirm"
		return m, nil
	case key.Matches(msg, m.keys.SetOpen):
		return m.transition(current.Status, domainissue.StatusOpen)
	case key.Matches(msg, m.keys.SetDoing):
		return m.transition(current.Status, domainissue.StatusInProgress)
	case key.Matches(msg, m.keys.SetDone):
		return m.transition(current.Status, domainissue.StatusDone)
	}
	return m, nil
}

func (m *model) transition(from, to domainissue.Status) (tea.Model, tea.Cmd) {
	if from == to || !domainissue.CanTransition(from, to) {
		return m, nil
	}
	status := string(to)
	m.busy = true
	m.status = "moving to " + statusLabel(to)
	return m, m.updateCmd("status", httpapi.UpdateIssueRequest{Status: &status})
}

func (m *model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Confirm) {
		m.busy = true
		m.status = "deleting"
		return m, m.deleteCmd()
	}
	m.mode = modeBrowse
	m.status = "delete cancelled"
	return m, nil
}

func (m *model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.resetInputs()
		m.status = "cancelled"
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		return m, m.focusInput((m.focus + 1) % len(m.inputs))
	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			return m, nil
		}
		return m.submitForm()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *model) submitForm() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.inputs[fieldTitle].Value())
	description := strings.TrimSpace(m.inputs[fieldDescription].Value())
	if title == "" || description == "" {
		m.status = "Title and description are required"
		return m, nil
	}

	m.busy = true
	if m.mode == modeCreate {
		m.status = "creating"
		return m, m.createCmd(title, description)
	}
	m.status = "saving"
	return m, m.updateCmd("edit", httpapi.UpdateIssueRequest{Title: &title, Description: &description})
}

func (m *model) focusInput(index int) tea.Cmd {
	m.focus = index
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == index {
			cmd = m.inputs[i].Focus()
			continue
		}
		m.inputs[i].Blur()
	}
	return cmd
}

func (m *model) resetInputs() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.focus = fieldTitle
}
