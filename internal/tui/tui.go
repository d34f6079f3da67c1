package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/taskdeck/internal/models"
	"github.com/balkashynov/taskdeck/internal/service"
)

// RunList starts the interactive task browser
func RunList(svc *service.TaskService) error {
	p := tea.NewProgram(NewListModel(svc), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RunTaskForm runs the task form on its own and returns the saved task.
// A nil task with a nil error means the form was cancelled.
func RunTaskForm(svc *service.TaskService, editing *models.Task, prefill FormValues) (*models.Task, error) {
	if editing != nil {
		svc.Store().OpenTaskForm(editing.ID)
	} else {
		svc.Store().OpenTaskForm("")
	}

	p := tea.NewProgram(NewTaskForm(svc, editing, prefill, true), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := finalModel.(TaskFormModel)
	if !ok || m.Cancelled() {
		return nil, nil
	}
	if m.Saved() == nil && m.Err() != nil {
		return nil, m.Err()
	}
	return m.Saved(), nil
}
