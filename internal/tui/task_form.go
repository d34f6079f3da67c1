package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/parser"
	"github.com/balkashynov/taskdeck/internal/service"
)

// Step represents the current step in the form
type Step int

const (
	StepTitle Step = iota
	StepCategory
	StepPriority
	StepDueDate
	StepSave
)

const (
	dueInputLayout = "02/01/2006 15:04"
	requestTimeout = 30 * time.Second
)

// FormValues are the raw text of each form field
type FormValues struct {
	Title    string
	Category string
	Priority string
	DueDate  string
}

func (v FormValues) list() []string {
	return []string{v.Title, v.Category, v.Priority, v.DueDate}
}

// taskSavedMsg carries the result of a create or update request
type taskSavedMsg struct {
	task *models.Task
	err  error
}

// formClosedMsg tells the list that an embedded form is done; task is nil
// when it was cancelled
type formClosedMsg struct {
	task *models.Task
}

// TaskFormModel creates a task, or edits one when editing is set
type TaskFormModel struct {
	svc         *service.TaskService
	currentStep Step
	inputs      []textinput.Model
	initial     []string
	width       int
	height      int

	editing    *models.Task
	standalone bool
	now        func() time.Time

	// State
	saving        bool
	spinner       spinner.Model
	err           error
	validationErr string
	completed     bool
	cancelled     bool
	saved         *models.Task

	// Save confirmation modal
	showSaveModal   bool
	saveModalChoice bool // true for Yes, false for No
}

// NewTaskForm builds the form. A nil editing task means create mode, where
// priority defaults to medium, category to personal and the due date to now.
// Non-empty prefill values replace the defaults.
func NewTaskForm(svc *service.TaskService, editing *models.Task, prefill FormValues, standalone bool) TaskFormModel {
	now := time.Now

	values := FormValues{
		Category: strings.ToLower(string(models.CategoryPersonal)),
		Priority: "3",
		DueDate:  now().Format(dueInputLayout),
	}
	if editing != nil {
		values = FormValues{
			Title:    editing.Title,
			Category: strings.ToLower(string(editing.Category)),
			Priority: fmt.Sprint(editing.Priority),
			DueDate:  editing.DueDate.Local().Format(dueInputLayout),
		}
	}
	if prefill.Title != "" {
		values.Title = prefill.Title
	}
	if prefill.Category != "" {
		values.Category = prefill.Category
	}
	if prefill.Priority != "" {
		values.Priority = prefill.Priority
	}
	if prefill.DueDate != "" {
		values.DueDate = prefill.DueDate
	}

	placeholders := []string{
		"Enter task title... (required)",
		"work, personal, health, education or shopping",
		"1-5 or very-low, low, medium, high, very-high",
		"Due: dd/mm/yyyy [hh:mm], yyyy-mm-dd, today, tomorrow, 3 days, 24 hours, 2 weeks",
	}
	limits := []int{models.MaxTitleLength, 20, 10, 50}

	inputs := make([]textinput.Model, len(placeholders))
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 60
		inputs[i].Placeholder = placeholders[i]
		inputs[i].CharLimit = limits[i]

		inputs[i].TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		inputs[i].PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
		inputs[i].Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	}
	initial := values.list()
	for i, v := range initial {
		inputs[i].SetValue(v)
	}
	inputs[StepTitle].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))

	return TaskFormModel{
		svc:        svc,
		inputs:     inputs,
		initial:    initial,
		editing:    editing,
		standalone: standalone,
		now:        now,
		spinner:    sp,
	}
}

func (m TaskFormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Saved returns the created or updated task, nil until a save succeeds
func (m TaskFormModel) Saved() *models.Task { return m.saved }

func (m TaskFormModel) Cancelled() bool { return m.cancelled }

func (m TaskFormModel) Err() error { return m.err }

func (m TaskFormModel) isEdit() bool { return m.editing != nil }

// Update handles messages
func (m TaskFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		maxInputWidth := (m.width * 2 / 3) - 10
		if maxInputWidth < 30 {
			maxInputWidth = 30
		}
		if maxInputWidth > 80 {
			maxInputWidth = 80
		}
		for i := range m.inputs {
			m.inputs[i].Width = maxInputWidth
		}
		return m, nil

	case spinner.TickMsg:
		if !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case taskSavedMsg:
		m.saving = false
		if msg.err != nil {
			// The form stays open so the request can be retried
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.completed = true
		m.saved = msg.task
		return m, m.finish()

	case tea.KeyMsg:
		if m.saving {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

		if m.showSaveModal {
			switch msg.String() {
			case "left", "right":
				m.saveModalChoice = !m.saveModalChoice
				return m, nil
			case "y", "Y":
				m.saveModalChoice = true
				return m.handleSaveChoice()
			case "n", "N":
				m.saveModalChoice = false
				return m.handleSaveChoice()
			case "enter":
				return m.handleSaveChoice()
			case "esc":
				m.showSaveModal = false
				return m, nil
			case "ctrl+c":
				m.cancelled = true
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			m.cancelled = true
			return m, tea.Quit

		case "esc":
			if m.currentStep == StepSave {
				return m.prevStep()
			}
			if !m.hasChanges() {
				return m.cancel()
			}
			m.showSaveModal = true
			m.saveModalChoice = true
			return m, nil

		case "ctrl+s":
			return m.submit()

		case "enter":
			return m.handleEnter()

		case "tab", "down":
			if err := m.checkStep(m.currentStep); err != "" {
				m.validationErr = err
				return m, nil
			}
			return m.nextStep()

		case "shift+tab", "up":
			return m.prevStep()
		}
	}

	var cmd tea.Cmd
	if m.currentStep < StepSave {
		m.inputs[m.currentStep], cmd = m.inputs[m.currentStep].Update(msg)
	}
	return m, cmd
}

func (m TaskFormModel) handleEnter() (TaskFormModel, tea.Cmd) {
	m.validationErr = ""
	if m.currentStep == StepSave {
		return m.submit()
	}
	if err := m.checkStep(m.currentStep); err != "" {
		m.validationErr = err
		return m, nil
	}
	return m.nextStep()
}

// checkStep validates one field and returns a message, empty when valid
func (m TaskFormModel) checkStep(step Step) string {
	value := strings.TrimSpace(m.inputs[step].Value())
	switch step {
	case StepTitle:
		if value == "" {
			return "Task title is required"
		}
		if len(value) > models.MaxTitleLength {
			return fmt.Sprintf("Title must be at most %d characters", models.MaxTitleLength)
		}
	case StepCategory:
		if _, ok := models.ParseCategory(value); !ok {
			return "Invalid category. Use: work, personal, health, education or shopping"
		}
	case StepPriority:
		if _, err := parser.ParsePriority(value); err != nil {
			return "Invalid priority: " + err.Error()
		}
	case StepDueDate:
		if _, err := parser.ParseDueDateAt(value, m.now()); err != nil {
			return "Invalid due date: " + err.Error()
		}
	}
	return ""
}

func (m TaskFormModel) nextStep() (TaskFormModel, tea.Cmd) {
	if m.currentStep < StepSave {
		m.inputs[m.currentStep].Blur()
		m.currentStep++
		if m.currentStep < StepSave {
			m.inputs[m.currentStep].Focus()
		}
	}
	return m, textinput.Blink
}

func (m TaskFormModel) prevStep() (TaskFormModel, tea.Cmd) {
	if m.currentStep > StepTitle {
		if m.currentStep < StepSave {
			m.inputs[m.currentStep].Blur()
		}
		m.currentStep--
		m.inputs[m.currentStep].Focus()
	}
	return m, textinput.Blink
}

func (m TaskFormModel) goToStep(step Step) TaskFormModel {
	if m.currentStep < StepSave {
		m.inputs[m.currentStep].Blur()
	}
	m.currentStep = step
	if step < StepSave {
		m.inputs[step].Focus()
	}
	return m
}

func (m TaskFormModel) hasChanges() bool {
	for i, input := range m.inputs {
		if input.Value() != m.initial[i] {
			return true
		}
	}
	return false
}

// buildCreate validates every field locally and returns the request
func (m TaskFormModel) buildCreate() (models.CreateTaskRequest, Step, string) {
	for step := StepTitle; step < StepSave; step++ {
		if err := m.checkStep(step); err != "" {
			return models.CreateTaskRequest{}, step, err
		}
	}
	category, _ := models.ParseCategory(m.inputs[StepCategory].Value())
	priority, _ := parser.ParsePriority(m.inputs[StepPriority].Value())
	due, _ := parser.ParseDueDateAt(strings.TrimSpace(m.inputs[StepDueDate].Value()), m.now())

	req := models.CreateTaskRequest{
		Title:    strings.TrimSpace(m.inputs[StepTitle].Value()),
		Priority: priority,
		DueDate:  due,
		Category: category,
	}
	if err := models.ValidateCreate(req); err != nil {
		return req, StepSave, err.Error()
	}
	return req, StepSave, ""
}

// buildUpdate returns a patch holding only the fields that differ from the
// task being edited
func (m TaskFormModel) buildUpdate() (models.UpdateTaskRequest, Step, string) {
	full, step, err := m.buildCreate()
	if err != "" {
		return models.UpdateTaskRequest{}, step, err
	}

	var req models.UpdateTaskRequest
	if full.Title != m.editing.Title {
		req.Title = &full.Title
	}
	if full.Category != m.editing.Category {
		req.Category = &full.Category
	}
	if full.Priority != m.editing.Priority {
		req.Priority = &full.Priority
	}
	if m.inputs[StepDueDate].Value() != m.initial[StepDueDate] && !full.DueDate.Equal(m.editing.DueDate) {
		req.DueDate = &full.DueDate
	}
	return req, StepSave, ""
}

// submit validates locally and only then sends the request
func (m TaskFormModel) submit() (TaskFormModel, tea.Cmd) {
	m.validationErr = ""
	m.err = nil

	if m.isEdit() {
		req, step, err := m.buildUpdate()
		if err != "" {
			m.validationErr = err
			return m.goToStep(step), nil
		}
		if req.IsEmpty() {
			task := *m.editing
			m.completed = true
			m.saved = &task
			m.svc.Store().CloseTaskForm()
			return m, m.finish()
		}
		m.saving = true
		return m, tea.Batch(m.spinner.Tick, updateTaskCmd(m.svc, m.editing.ID, req))
	}

	req, step, err := m.buildCreate()
	if err != "" {
		m.validationErr = err
		return m.goToStep(step), nil
	}
	m.saving = true
	return m, tea.Batch(m.spinner.Tick, createTaskCmd(m.svc, req))
}

func createTaskCmd(svc *service.TaskService, req models.CreateTaskRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		task, err := svc.CreateTask(ctx, req)
		return taskSavedMsg{task: task, err: err}
	}
}

func updateTaskCmd(svc *service.TaskService, id string, req models.UpdateTaskRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		task, err := svc.UpdateTask(ctx, id, req)
		return taskSavedMsg{task: task, err: err}
	}
}

func (m TaskFormModel) cancel() (TaskFormModel, tea.Cmd) {
	m.cancelled = true
	m.svc.Store().CloseTaskForm()
	return m, m.finish()
}

func (m TaskFormModel) finish() tea.Cmd {
	if m.standalone {
		return tea.Quit
	}
	task := m.saved
	return func() tea.Msg { return formClosedMsg{task: task} }
}

func (m TaskFormModel) handleSaveChoice() (TaskFormModel, tea.Cmd) {
	m.showSaveModal = false
	if m.saveModalChoice {
		return m.submit()
	}
	return m.cancel()
}

// View renders the form
func (m TaskFormModel) View() string {
	if m.cancelled || m.completed {
		return ""
	}

	if m.width < 85 {
		return m.renderWizard()
	}

	rightWidth := 44
	leftWidth := m.width - rightWidth - 4

	leftStyle := lipgloss.NewStyle().
		Width(leftWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(1)

	rightStyle := lipgloss.NewStyle().
		Width(rightWidth).
		Padding(1)

	mainView := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(m.renderWizard()),
		" ",
		rightStyle.Render(m.renderPreview()),
	)

	if m.showSaveModal {
		return m.renderSaveModal()
	}
	return mainView
}

func (m TaskFormModel) renderWizard() string {
	var b strings.Builder

	heading := "➕ New task"
	if m.isEdit() {
		heading = "✏️  Edit task"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentMain)).Render(heading))
	b.WriteString("\n\n")

	labels := []string{"Title", "Category", "Priority", "Due date"}
	activeLabel := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))
	label := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))

	for i, input := range m.inputs {
		if Step(i) == m.currentStep {
			b.WriteString(activeLabel.Render("▸ " + labels[i]))
		} else {
			b.WriteString(label.Render("  " + labels[i]))
		}
		b.WriteString("\n  ")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	saveLabel := "[ Save ]"
	if m.currentStep == StepSave {
		b.WriteString(lipgloss.NewStyle().
			Background(lipgloss.Color(ColorAccentBright)).
			Foreground(lipgloss.Color("#000000")).
			Bold(true).
			Render(saveLabel))
	} else {
		b.WriteString(label.Render(saveLabel))
	}
	b.WriteString("\n")

	if m.saving {
		b.WriteString("\n" + m.spinner.View() + " Saving...")
	}
	if m.validationErr != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("⚠ "+m.validationErr))
	}
	if m.err != nil {
		b.WriteString("\n" + renderAlert(m.err))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true).
		Render("enter/tab next · shift+tab back · ctrl+s save · esc close"))
	return b.String()
}

// renderPreview shows the task as it would be saved
func (m TaskFormModel) renderPreview() string {
	var b strings.Builder
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText)).Italic(true)

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).Render("Preview"))
	b.WriteString("\n\n")

	title := strings.TrimSpace(m.inputs[StepTitle].Value())
	if title == "" {
		b.WriteString(muted.Render("untitled"))
	} else {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText)).Render(title))
	}
	b.WriteString("\n\n")

	if c, ok := models.ParseCategory(m.inputs[StepCategory].Value()); ok {
		b.WriteString("Category: " + categoryBadge(c) + "\n")
	} else {
		b.WriteString("Category: " + muted.Render("?") + "\n")
	}
	if p, err := parser.ParsePriority(m.inputs[StepPriority].Value()); err == nil {
		b.WriteString("Priority: " + priorityBadge(p) + "\n")
	} else {
		b.WriteString("Priority: " + muted.Render("?") + "\n")
	}
	if due, err := parser.ParseDueDateAt(strings.TrimSpace(m.inputs[StepDueDate].Value()), m.now()); err == nil {
		b.WriteString(parser.FormatDueDate(due, m.now()) + "\n")
	} else {
		b.WriteString("Due: " + muted.Render("?") + "\n")
	}
	return b.String()
}

func (m TaskFormModel) renderSaveModal() string {
	var modalContent strings.Builder
	modalContent.WriteString("Save changes?\n\n")

	yesStyle := lipgloss.NewStyle().Padding(0, 2)
	noStyle := lipgloss.NewStyle().Padding(0, 2)
	if m.saveModalChoice {
		yesStyle = yesStyle.
			Background(lipgloss.Color(ColorAccentBright)).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)
	} else {
		noStyle = noStyle.
			Background(lipgloss.Color(ColorError)).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)
	}

	modalContent.WriteString(lipgloss.JoinHorizontal(
		lipgloss.Center,
		yesStyle.Render("Yes"),
		"   ",
		noStyle.Render("No"),
	))
	modalContent.WriteString("\n\n")
	modalContent.WriteString("← → or Y/N to choose, Enter to confirm\nEsc to keep editing")

	modal := lipgloss.NewStyle().
		Width(50).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentBright)).
		Background(lipgloss.Color(ColorCardBackground)).
		Padding(1).
		Align(lipgloss.Center).
		Render(modalContent.String())

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		modal,
	)
}
