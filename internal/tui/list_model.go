package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/taskdeck/internal/api"
	"github.com/balkashynov/taskdeck/internal/filter"
	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/parser"
	"github.com/balkashynov/taskdeck/internal/service"
	"github.com/balkashynov/taskdeck/internal/store"
)

type pageLoadedMsg struct {
	page filter.Page
	err  error
}

type detailLoadedMsg struct {
	id   string
	task *models.Task
	err  error
}

type taskDeletedMsg struct {
	id  string
	err error
}

// ListModel represents the TUI model for browsing tasks
type ListModel struct {
	svc    *service.TaskService
	width  int
	height int

	// Current page of the filtered list
	page     filter.Page
	cursor   int
	loading  bool
	loaded   bool
	spinner  spinner.Model
	err      error
	flash    string
	deleting bool

	// Drawer
	detail    *models.Task
	detailErr error

	// Embedded form, nil when closed
	form *TaskFormModel

	confirmDelete bool
	now           func() time.Time
}

// NewListModel creates a list model reading through svc
func NewListModel(svc *service.TaskService) ListModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))

	return ListModel{
		svc:     svc,
		spinner: sp,
		loading: true,
		now:     time.Now,
	}
}

// Init loads the first page
func (m ListModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadPageCmd(m.svc))
}

func loadPageCmd(svc *service.TaskService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		page, err := svc.VisibleTasks(ctx)
		return pageLoadedMsg{page: page, err: err}
	}
}

func loadDetailCmd(svc *service.TaskService, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		task, err := svc.GetTask(ctx, id)
		return detailLoadedMsg{id: id, task: task, err: err}
	}
}

func deleteTaskCmd(svc *service.TaskService, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return taskDeletedMsg{id: id, err: svc.DeleteTask(ctx, id)}
	}
}

func (m ListModel) reload() (ListModel, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, loadPageCmd(m.svc))
}

// Update handles messages
func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m, nil

	case spinner.TickMsg:
		if m.form != nil && msg.ID != m.spinner.ID() {
			return m.updateForm(msg)
		}
		if !m.loading && !m.deleting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pageLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.page = msg.page
		// A delete can empty the last page; step back to the new last page
		if len(m.page.Items) == 0 && m.page.Page > 0 && m.page.TotalPages > 0 {
			if err := m.svc.Store().SetPage(m.page.TotalPages - 1); err == nil {
				return m.reload()
			}
		}
		if m.cursor >= len(m.page.Items) {
			m.cursor = max(len(m.page.Items)-1, 0)
		}
		return m, nil

	case detailLoadedMsg:
		if msg.id != m.svc.Store().UI().SelectedTaskID {
			return m, nil
		}
		m.detailErr = msg.err
		if msg.err == nil {
			m.detail = msg.task
		}
		return m, nil

	case taskDeletedMsg:
		m.deleting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.flash = "Task deleted"
		m.detail = nil
		return m.reload()

	case formClosedMsg:
		m.form = nil
		if msg.task != nil {
			m.flash = fmt.Sprintf("Saved %q", msg.task.Title)
			if m.detail != nil && m.detail.ID == msg.task.ID {
				m.detail = msg.task
			}
		}
		return m.reload()
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

func (m ListModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.form.Update(msg)
	form := updated.(TaskFormModel)
	m.form = &form
	return m, cmd
}

func (m ListModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		m.confirmDelete = false
		if msg.String() == "y" || msg.String() == "Y" {
			if task, ok := m.selected(); ok {
				m.deleting = true
				return m, tea.Batch(m.spinner.Tick, deleteTaskCmd(m.svc, task.ID))
			}
		}
		return m, nil
	}

	m.flash = ""
	st := m.svc.Store()

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc":
		if st.UI().IsDrawerOpen {
			st.SetSelectedTaskID("")
			m.detail = nil
			m.detailErr = nil
			return m, nil
		}
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.page.Items)-1 {
			m.cursor++
		}
		return m, nil

	case "left", "h":
		if m.page.HasPrev() {
			if err := st.SetPage(m.page.Page - 1); err == nil {
				m.cursor = 0
				return m.reload()
			}
		}
		return m, nil

	case "right", "l":
		if m.page.HasNext() {
			if err := st.SetPage(m.page.Page + 1); err == nil {
				m.cursor = 0
				return m.reload()
			}
		}
		return m, nil

	case "enter":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		st.SetSelectedTaskID(task.ID)
		m.detail = &task
		m.detailErr = nil
		return m, loadDetailCmd(m.svc, task.ID)

	case "n":
		st.OpenTaskForm("")
		return m.openForm(nil)

	case "e":
		task, ok := m.selected()
		if m.detail != nil && st.UI().IsDrawerOpen {
			task, ok = *m.detail, true
		}
		if !ok {
			return m, nil
		}
		st.OpenTaskForm(task.ID)
		return m.openForm(&task)

	case "d":
		if _, ok := m.selected(); ok {
			m.confirmDelete = true
		}
		return m, nil

	case "s":
		next := nextSortOrder(st.Filters().SortBy)
		if err := st.SetFilters(store.FilterPatch{SortBy: &next}); err != nil {
			m.err = err
			return m, nil
		}
		m.cursor = 0
		return m.reload()

	case "r":
		st.ResetFilters()
		m.cursor = 0
		return m.reload()

	case "ctrl+r":
		m.svc.Refresh()
		return m.reload()
	}
	return m, nil
}

func (m ListModel) openForm(task *models.Task) (tea.Model, tea.Cmd) {
	form := NewTaskForm(m.svc, task, FormValues{}, false)
	updated, _ := form.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	form = updated.(TaskFormModel)
	m.form = &form
	return m, form.Init()
}

func (m ListModel) selected() (models.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.page.Items) {
		return models.Task{}, false
	}
	return m.page.Items[m.cursor], true
}

func nextSortOrder(current models.SortBy) models.SortBy {
	i := slices.Index(models.SortOrders, current)
	return models.SortOrders[(i+1)%len(models.SortOrders)]
}

// View renders the TUI
func (m ListModel) View() string {
	if m.form != nil {
		return m.form.View()
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content string
	if m.svc.Store().UI().IsDrawerOpen {
		leftWidth := m.width * 60 / 100
		rightWidth := m.width - leftWidth - 1
		content = lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.renderTaskTable(leftWidth),
			" ",
			m.renderDrawer(rightWidth),
		)
	} else {
		content = m.renderTaskTable(m.width - 2)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		content,
		m.renderStatusLine(),
		m.renderHelpBar(),
	)
}

func (m ListModel) renderHeader() string {
	f := m.svc.Store().Filters()
	logo := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentMain)).Render("taskdeck")
	meta := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Render(
		fmt.Sprintf("  user %s · sort %s%s", m.svc.Store().UserID(), sortLabel(f.SortBy), boundsLabel(f)))
	return logo + meta
}

func sortLabel(s models.SortBy) string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}

// boundsLabel describes the active date range, empty when none is set
func boundsLabel(f store.FilterState) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "…"
		}
		return t.Format("02/01/2006")
	}
	switch {
	case f.CreatedDateFrom != nil || f.CreatedDateTo != nil:
		return fmt.Sprintf(" · created %s..%s", format(f.CreatedDateFrom), format(f.CreatedDateTo))
	case f.DueDateFrom != nil || f.DueDateTo != nil:
		return fmt.Sprintf(" · due %s..%s", format(f.DueDateFrom), format(f.DueDateTo))
	}
	return ""
}

func (m ListModel) renderTaskTable(width int) string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright))
	b.WriteString(headerStyle.Render("📋 Tasks"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(renderAlert(m.err))
		b.WriteString("\n\n")
	}

	if !m.loaded {
		if m.loading {
			b.WriteString(m.spinner.View() + " Loading tasks...")
		}
		return tableBorder(width).Render(b.String())
	}

	if len(m.page.Items) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true)
		b.WriteString(emptyStyle.Render("No tasks found"))
		return tableBorder(width).Render(b.String())
	}

	availableWidth := width - 4
	categoryWidth := 11
	priorityWidth := 10
	dueWidth := 10
	titleWidth := availableWidth - categoryWidth - priorityWidth - dueWidth - 6
	if titleWidth < 20 {
		titleWidth = 20
	}

	columnHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccentBright)).
		Padding(0, 1)
	headers := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		titleWidth, "TITLE",
		categoryWidth, "CATEGORY",
		priorityWidth, "PRIORITY",
		dueWidth, "DUE")
	b.WriteString(columnHeaderStyle.Render(headers))
	b.WriteString("\n")

	now := m.now()
	for i, task := range m.page.Items {
		title := padRight(truncate(task.Title, titleWidth), titleWidth)
		category := lipgloss.NewStyle().Foreground(lipgloss.Color(CategoryColor(task.Category))).
			Render(padRight(task.Category.Label(), categoryWidth))
		priority := lipgloss.NewStyle().Foreground(lipgloss.Color(PriorityColor(task.Priority))).
			Render(padRight(models.PriorityLabel(task.Priority), priorityWidth))
		due := renderDueCell(task, now, dueWidth)

		row := strings.Join([]string{title, category, priority, due}, " ")
		if i == m.cursor {
			row = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorAccentMain)).
				Bold(true).
				Padding(0, 1).
				Render(row)
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	pageInfo := fmt.Sprintf("Page %d/%d (%d tasks)", m.page.Page+1, max(m.page.TotalPages, 1), m.page.FilteredCount)
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Align(lipgloss.Center).
		Width(width - 2).
		MarginTop(1).
		Render(pageInfo))

	return tableBorder(width).Render(b.String())
}

func tableBorder(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width)
}

// renderDueCell shows a short relative due label coloured by urgency
func renderDueCell(task models.Task, now time.Time, width int) string {
	local := task.DueDate.In(now.Location())
	days := int(startOfLocalDay(local).Sub(startOfLocalDay(now)).Hours() / 24)

	var text, color string
	switch {
	case task.IsOverdue(now):
		text, color = "OVERDUE", ColorError
	case days == 0:
		text, color = "TODAY", ColorWarning
	case days == 1:
		text, color = "TOMORROW", ColorWarning
	case days <= 7:
		text, color = fmt.Sprintf("%dd", days), ColorAccentBright
	default:
		text, color = local.Format("02/01"), ColorSecondaryText
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(padRight(text, width))
}

func startOfLocalDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (m ListModel) renderDrawer(width int) string {
	var b strings.Builder

	switch {
	case m.detailErr != nil && api.IsNotFound(m.detailErr):
		b.WriteString(renderAlert(fmt.Errorf("task not found, it may have been deleted")))
	case m.detailErr != nil:
		b.WriteString(renderAlert(m.detailErr))
	case m.detail == nil:
		b.WriteString(m.spinner.View() + " Loading...")
	default:
		task := m.detail
		b.WriteString(lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimaryText)).
			Width(width - 2).
			Render("📋 " + task.Title))
		b.WriteString("\n\n")

		label := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
		b.WriteString(label.Render("Category: ") + categoryBadge(task.Category) + "\n")
		b.WriteString(label.Render("Priority: ") + priorityBadge(task.Priority) + "\n")
		b.WriteString(parser.FormatDueDate(task.DueDate, m.now()) + "\n\n")
		b.WriteString(label.Render("Created: " + task.CreatedAt.Local().Format("02/01/2006 15:04")))
		b.WriteString("\n")
		b.WriteString(label.Render("Updated: " + task.UpdatedAt.Local().Format("02/01/2006 15:04")))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText)).Render("ID: " + task.ID))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Padding(0, 1).
		Width(width).
		Render(b.String())
}

func (m ListModel) renderStatusLine() string {
	switch {
	case m.confirmDelete:
		task, _ := m.selected()
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Bold(true).
			Render(fmt.Sprintf("Delete %q? y to confirm, any other key to cancel", task.Title))
	case m.deleting:
		return m.spinner.View() + " Deleting..."
	case m.loaded && m.loading:
		return m.spinner.View() + " Refreshing..."
	case m.flash != "":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render("✓ " + m.flash)
	}
	return ""
}

func (m ListModel) renderHelpBar() string {
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width)

	helpText := "↑/↓ nav · ←/→ page · enter open · n new · e edit · d delete · s sort · r reset · ctrl+r refresh · q quit"
	return helpStyle.Render(helpText)
}

func renderAlert(err error) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorError)).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(ColorError)).
		PaddingLeft(1).
		Render("⚠ " + err.Error())
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
