package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ieltsdesk/backend/client"
	"github.com/ieltsdesk/backend/essay"
	"github.com/ieltsdesk/backend/pdfdoc"
	"github.com/ieltsdesk/backend/subm"
)

type focus int

const (
	focusName focus = iota
	focusTask
	focusQuestion
	focusImage
	focusEssay
	focusCount
)

type writerPhase int

const (
	phaseEditing writerPhase = iota
	phaseSubmitting
)

// draft is what the student has typed so far.
type draft struct {
	StudentName string
	TaskType    string
	Question    string
	ImagePath   string
	EssayText   string
	TimeSpent   string
}

func (d draft) validate() error {
	switch {
	case strings.TrimSpace(d.StudentName) == "":
		return errors.New("name is required")
	case strings.TrimSpace(d.Question) == "":
		return errors.New("question is required")
	case essay.Count(d.EssayText) == 0:
		return errors.New("essay is empty")
	case d.TaskType == subm.TaskType1 && strings.TrimSpace(d.ImagePath) == "":
		return errors.New("task 1 requires an image")
	}
	return nil
}

// buildForm renders the submission document and assembles the upload.
func (d draft) buildForm(now time.Time) (client.SubmitForm, error) {
	if err := d.validate(); err != nil {
		return client.SubmitForm{}, err
	}

	var image []byte
	var imageName string
	if d.TaskType == subm.TaskType1 {
		path := strings.TrimSpace(d.ImagePath)
		content, err := os.ReadFile(path)
		if err != nil {
			return client.SubmitForm{}, fmt.Errorf("reading image: %w", err)
		}
		image = content
		imageName = filepath.Base(path)
	}

	essayText := strings.TrimSpace(d.EssayText)
	wordCount := essay.Count(essayText)
	timeSpent := d.TimeSpent
	if timeSpent == "" {
		timeSpent = essay.FormatSeconds(0)
	}

	pdf, err := pdfdoc.RenderBytes(pdfdoc.Record{
		StudentName: strings.TrimSpace(d.StudentName),
		TaskType:    d.TaskType,
		Question:    strings.TrimSpace(d.Question),
		WordCount:   wordCount,
		TimeSpent:   timeSpent,
		Image:       image,
		EssayText:   essayText,
		SubmittedAt: now.UTC(),
	})
	if err != nil {
		return client.SubmitForm{}, fmt.Errorf("rendering pdf: %w", err)
	}

	return client.SubmitForm{
		StudentName:   strings.TrimSpace(d.StudentName),
		TaskType:      d.TaskType,
		Question:      strings.TrimSpace(d.Question),
		EssayText:     essayText,
		WordCount:     wordCount,
		TimeSpent:     timeSpent,
		Pdf:           pdf,
		Image:         image,
		ImageFilename: imageName,
	}, nil
}

type tickMsg time.Time

type submitResultMsg struct {
	id  string
	err error
}

type writerModel struct {
	api   *client.Client
	clock func() time.Time

	phase    writerPhase
	focus    focus
	taskType string

	nameInput     textinput.Model
	questionInput textinput.Model
	imageInput    textinput.Model
	essayArea     textarea.Model
	submitSpinner spinner.Model

	stopwatch *essay.Stopwatch

	errMsg  string
	infoMsg string
}

func newWriterModel(api *client.Client, name string, taskType string, clock func() time.Time) writerModel {
	if !subm.ValidTaskType(taskType) {
		taskType = subm.TaskType2
	}

	nameInput := textinput.New()
	nameInput.Placeholder = "Your name"
	nameInput.CharLimit = 120
	nameInput.Width = 40
	nameInput.SetValue(name)

	questionInput := textinput.New()
	questionInput.Placeholder = "Paste the task question"
	questionInput.CharLimit = 2000
	questionInput.Width = 70

	imageInput := textinput.New()
	imageInput.Placeholder = "path/to/chart.png"
	imageInput.CharLimit = 500
	imageInput.Width = 70

	essayArea := textarea.New()
	essayArea.Placeholder = "Start writing your essay here..."
	essayArea.CharLimit = 0
	essayArea.ShowLineNumbers = false
	essayArea.SetWidth(80)
	essayArea.SetHeight(14)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3498db"))

	m := writerModel{
		api:           api,
		clock:         clock,
		taskType:      taskType,
		nameInput:     nameInput,
		questionInput: questionInput,
		imageInput:    imageInput,
		essayArea:     essayArea,
		submitSpinner: s,
		stopwatch:     &essay.Stopwatch{},
	}
	if name == "" {
		m.focus = focusName
		m.nameInput.Focus()
	} else {
		m.focus = focusQuestion
		m.questionInput.Focus()
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m writerModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func (m writerModel) draft() draft {
	return draft{
		StudentName: m.nameInput.Value(),
		TaskType:    m.taskType,
		Question:    m.questionInput.Value(),
		ImagePath:   m.imageInput.Value(),
		EssayText:   m.essayArea.Value(),
		TimeSpent:   m.stopwatch.String(),
	}
}

// skipsFocus reports whether f is hidden for the current task type.
func (m writerModel) skipsFocus(f focus) bool {
	return f == focusImage && m.taskType != subm.TaskType1
}

func (m *writerModel) moveFocus(delta int) tea.Cmd {
	next := m.focus
	for {
		next = focus((int(next) + delta + int(focusCount)) % int(focusCount))
		if !m.skipsFocus(next) {
			break
		}
	}
	return m.setFocus(next)
}

func (m *writerModel) setFocus(f focus) tea.Cmd {
	m.focus = f
	m.nameInput.Blur()
	m.questionInput.Blur()
	m.imageInput.Blur()
	m.essayArea.Blur()

	switch f {
	case focusName:
		return m.nameInput.Focus()
	case focusQuestion:
		return m.questionInput.Focus()
	case focusImage:
		return m.imageInput.Focus()
	case focusEssay:
		return m.essayArea.Focus()
	}
	return nil
}

func (m *writerModel) toggleTask() {
	if m.taskType == subm.TaskType1 {
		m.taskType = subm.TaskType2
	} else {
		m.taskType = subm.TaskType1
	}
}

func (m writerModel) submit() tea.Cmd {
	form, err := m.draft().buildForm(m.clock())
	if err != nil {
		return func() tea.Msg { return submitResultMsg{err: err} }
	}
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		id, err := api.Submit(ctx, form)
		return submitResultMsg{id: id, err: err}
	}
}

func (m writerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.stopwatch.Tick()
		return m, tick()

	case tea.WindowSizeMsg:
		if msg.Width > 10 {
			m.essayArea.SetWidth(msg.Width - 4)
			m.questionInput.Width = msg.Width - 16
		}
		return m, nil

	case submitResultMsg:
		m.phase = phaseEditing
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.infoMsg = ""
			return m, nil
		}
		m.errMsg = ""
		m.infoMsg = fmt.Sprintf("Submitted successfully! (id %s)", msg.id)
		m.essayArea.Reset()
		m.questionInput.SetValue("")
		m.imageInput.SetValue("")
		return m, nil

	case spinner.TickMsg:
		if m.phase != phaseSubmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.submitSpinner, cmd = m.submitSpinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.phase == phaseSubmitting {
			return m, nil
		}

		switch msg.String() {
		case "tab":
			return m, m.moveFocus(1)
		case "shift+tab":
			return m, m.moveFocus(-1)
		case "ctrl+t":
			if m.stopwatch.Running() {
				m.stopwatch.Stop()
			} else {
				m.stopwatch.Start()
			}
			return m, nil
		case "ctrl+r":
			m.stopwatch.Reset()
			return m, nil
		case "ctrl+s":
			m.phase = phaseSubmitting
			m.errMsg = ""
			m.infoMsg = ""
			return m, tea.Batch(m.submit(), m.submitSpinner.Tick)
		}

		if m.focus == focusTask {
			switch msg.String() {
			case "left", "right", " ", "enter":
				m.toggleTask()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case focusQuestion:
		m.questionInput, cmd = m.questionInput.Update(msg)
	case focusImage:
		m.imageInput, cmd = m.imageInput.Update(msg)
	case focusEssay:
		m.essayArea, cmd = m.essayArea.Update(msg)
	}
	return m, cmd
}

var (
	labelStyle  = lipgloss.NewStyle().Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e056fd")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
	timerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3498db")).Bold(true)
)

func (m writerModel) label(f focus, text string) string {
	if m.focus == f {
		return activeStyle.Render("> " + text)
	}
	return labelStyle.Render("  " + text)
}

func (m writerModel) View() string {
	var b strings.Builder

	timerState := "stopped"
	if m.stopwatch.Running() {
		timerState = "running"
	}
	fmt.Fprintf(&b, "%s %s   %s\n\n",
		timerStyle.Render(m.stopwatch.String()),
		mutedStyle.Render("("+timerState+")"),
		labelStyle.Render(fmt.Sprintf("%d words", essay.Count(m.essayArea.Value()))))

	fmt.Fprintf(&b, "%s %s\n", m.label(focusName, "Name:"), m.nameInput.View())

	tasks := make([]string, 0, 2)
	for _, t := range []string{subm.TaskType1, subm.TaskType2} {
		if t == m.taskType {
			tasks = append(tasks, activeStyle.Render("["+t+"]"))
		} else {
			tasks = append(tasks, mutedStyle.Render(" "+t+" "))
		}
	}
	fmt.Fprintf(&b, "%s %s\n", m.label(focusTask, "Task:"), strings.Join(tasks, " "))
	fmt.Fprintf(&b, "%s %s\n", m.label(focusQuestion, "Question:"), m.questionInput.View())
	if m.taskType == subm.TaskType1 {
		fmt.Fprintf(&b, "%s %s\n", m.label(focusImage, "Image:"), m.imageInput.View())
	}
	fmt.Fprintf(&b, "\n%s\n%s\n\n", m.label(focusEssay, "Essay:"), m.essayArea.View())

	switch {
	case m.phase == phaseSubmitting:
		fmt.Fprintf(&b, "%s Submitting...\n", m.submitSpinner.View())
	case m.errMsg != "":
		b.WriteString(errStyle.Render(m.errMsg) + "\n")
	case m.infoMsg != "":
		b.WriteString(okStyle.Render(m.infoMsg) + "\n")
	}

	b.WriteString(mutedStyle.Render("tab next field • ctrl+t start/stop timer • ctrl+r reset timer • ctrl+s submit • esc quit"))
	b.WriteString("\n")
	return b.String()
}

func runWriter(api *client.Client, name string, taskType string, clock func() time.Time) error {
	p := tea.NewProgram(newWriterModel(api, name, taskType, clock), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running writer: %w", err)
	}
	return nil
}
