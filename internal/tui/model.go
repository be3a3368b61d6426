// Package tui is the terminal chat widget: a Bubble Tea program that drives
// a conversation controller in-process.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/render"
)

const (
	cmdApply   = "/apply"
	cmdBalance = "/balance"
	cmdPolicy  = "/policy"
	cmdClear   = "/clear"
	cmdQuit    = "/quit"

	defaultPolicyQuery = "Tell me about the leave policy"
	inputHeight        = 3
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#059669"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
)

// replyMsg reports that a controller call finished, with the controller
// state read after it.
type replyMsg struct {
	err        error
	transcript []conversation.Message
	step       conversation.Step
}

type Model struct {
	ctx      context.Context
	ctl      *conversation.Controller
	renderer *render.Renderer

	input    textinput.Model
	spin     spinner.Model
	viewport viewport.Model
	width    int
	busy     bool
	status   string

	// copies of the controller state; Update never waits on the controller
	transcript []conversation.Message
	step       conversation.Step
}

func New(ctx context.Context, ctl *conversation.Controller, renderer *render.Renderer) Model {
	in := textinput.New()
	in.Placeholder = "Type a message, /apply, /balance [CL|PL|SL], /policy, /clear, /quit"
	in.Prompt = "You> "
	in.CharLimit = 500
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	m := Model{
		ctx:      ctx,
		ctl:      ctl,
		renderer: renderer,
		input:    in,
		spin:     s,
		viewport: viewport.New(80, 20),
		width:    80,
	}
	m.sync()
	m.refresh()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, ctl *conversation.Controller, renderer *render.Renderer) error {
	p := tea.NewProgram(New(ctx, ctl, renderer), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight, 3)
		m.refresh()
		return m, nil
	case replyMsg:
		m.busy = false
		m.status = ""
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.transcript, m.step = msg.transcript, msg.step
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(m.spin.View() + " " + helpStyle.Render("waiting for the HRMS backend..."))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	default:
		b.WriteString(helpStyle.Render("pick a button with #N · PgUp/PgDn to scroll · Esc to quit"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if m.busy {
		return m, nil
	}
	if text == "" && m.step != conversation.StepAwaitingBalanceType {
		return m, nil
	}
	m.input.SetValue("")
	m.status = ""

	if text == cmdQuit {
		return m, tea.Quit
	}
	if text == cmdClear {
		m.ctl.Reset()
		m.sync()
		m.refresh()
		return m, nil
	}
	action, err := m.action(text)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.busy = true
	ctx, ctl := m.ctx, m.ctl
	run := func() tea.Msg {
		err := action(ctx)
		return replyMsg{err: err, transcript: ctl.Transcript(), step: ctl.Step()}
	}
	return m, tea.Batch(run, m.spin.Tick)
}

// action maps one line of input to a controller call.
func (m Model) action(text string) (func(context.Context) error, error) {
	ctl := m.ctl
	switch {
	case text == cmdApply:
		return submitText(ctl, conversation.ApplyLeaveSentinel), nil
	case text == cmdPolicy:
		return submitText(ctl, m.policyQuery()), nil
	case text == cmdBalance || strings.HasPrefix(text, cmdBalance+" "):
		var leaveType *string
		if arg := strings.TrimSpace(strings.TrimPrefix(text, cmdBalance)); arg != "" {
			leaveType = &arg
		}
		return func(ctx context.Context) error {
			ctl.RequestBalance(ctx, leaveType)
			return nil
		}, nil
	case strings.HasPrefix(text, "#"):
		btn, err := m.button(text)
		if err != nil {
			return nil, err
		}
		cb := render.Bind(ctl)
		return func(ctx context.Context) error {
			_, err := render.Activate(ctx, cb, btn)
			return err
		}, nil
	}
	if step := m.step; step.AwaitsDate() {
		if _, err := time.Parse("2006-01-02", text); err == nil {
			field := conversation.FieldStartDate
			if step == conversation.StepAwaitingEndDate {
				field = conversation.FieldEndDate
			}
			return func(ctx context.Context) error {
				_, err := ctl.SelectDate(ctx, field, text)
				return err
			}, nil
		}
	}
	return submitText(ctl, text), nil
}

func submitText(ctl *conversation.Controller, text string) func(context.Context) error {
	return func(ctx context.Context) error {
		ctl.Submit(ctx, text)
		return nil
	}
}

// button resolves "#N" against the newest bot message that has buttons.
func (m Model) button(text string) (render.Button, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(text, "#"))
	if err != nil {
		return render.Button{}, errors.Errorf("%q is not a button number", text)
	}
	transcript := m.transcript
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role != conversation.RoleBot {
			continue
		}
		v := m.renderer.Render(transcript[i])
		if len(v.Buttons) == 0 {
			continue
		}
		if n < 1 || n > len(v.Buttons) {
			return render.Button{}, errors.Errorf("choose a button between #1 and #%d", len(v.Buttons))
		}
		return v.Buttons[n-1], nil
	}
	return render.Button{}, errors.New("there are no buttons to choose from")
}

func (m Model) policyQuery() string {
	for _, qa := range m.ctl.Catalog().QuickActions {
		if strings.Contains(strings.ToLower(qa.Label), "policy") {
			return qa.Query
		}
	}
	return defaultPolicyQuery
}

// sync copies the controller state. Only call it while no call is running.
func (m *Model) sync() {
	m.transcript = m.ctl.Transcript()
	m.step = m.ctl.Step()
}

func (m *Model) refresh() {
	transcript := m.transcript
	if len(transcript) == 0 {
		m.viewport.SetContent(m.welcome())
		return
	}
	parts := make([]string, 0, len(transcript))
	for _, msg := range transcript {
		parts = append(parts, m.renderer.Terminal(msg, m.width-2))
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
	m.viewport.GotoBottom()
}

func (m Model) welcome() string {
	cat := m.ctl.Catalog()
	var b strings.Builder
	b.WriteString(titleStyle.Render(cat.Welcome.Title))
	b.WriteString("\n")
	b.WriteString(cat.Welcome.Subtitle)
	b.WriteString("\n\n")
	for _, qa := range cat.QuickActions {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  %-9s %s", commandFor(qa), qa.Label)))
		b.WriteString("\n")
	}
	return b.String()
}

func commandFor(qa prompts.QuickAction) string {
	label := strings.ToLower(qa.Label)
	switch {
	case qa.Query == conversation.ApplyLeaveSentinel:
		return cmdApply
	case strings.Contains(label, "balance"):
		return cmdBalance
	case strings.Contains(label, "policy"):
		return cmdPolicy
	}
	return qa.Query
}
