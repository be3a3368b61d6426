package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
)

var (
	botAuthorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#059669"))
	userAuthorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	timeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boldStyle       = lipgloss.NewStyle().Bold(true)
	blockStyle      = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 1)
	blockTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#065F46"))
	rowKeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	buttonStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	successStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#059669"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
)

// Terminal renders one message for the terminal widget. Buttons are
// numbered so they can be picked with "#N".
func (r *Renderer) Terminal(m conversation.Message, width int) string {
	v := r.Render(m)

	author := userAuthorStyle.Render(v.Author)
	if v.Role == conversation.RoleBot {
		author = botAuthorStyle.Render(v.Author)
	}
	header := author + " " + timeStyle.Render(v.Time)

	var body string
	switch v.Kind {
	case KindText:
		body = terminalText(m.Content)
	case KindLeaveResponse:
		resp, _ := m.Content.(conversation.LeaveResponse)
		if v.Success {
			body = successStyle.Render("✓ " + terminalBold(resp.Message))
		} else {
			body = errorStyle.Render("✗ " + terminalBold(resp.Message))
		}
	default:
		body = r.terminalBlock(v, m, width)
	}
	if width > 0 {
		body = lipgloss.NewStyle().Width(width).Render(body)
	}
	return header + "\n" + body
}

func (r *Renderer) terminalBlock(v View, m conversation.Message, width int) string {
	var b strings.Builder
	if v.Title != "" {
		b.WriteString(blockTitleStyle.Render(v.Title))
		b.WriteString("\n")
	}
	if conf, ok := m.Content.(conversation.LeaveConfirmation); ok && conf.Message != "" {
		b.WriteString(terminalBold(conf.Message))
		b.WriteString("\n")
	}
	if v.Kind == KindDatePicker {
		b.WriteString(rowKeyStyle.Render("type a date as YYYY-MM-DD, " + v.MinDate + " or later"))
		b.WriteString("\n")
	}
	for _, row := range v.Rows {
		fmt.Fprintf(&b, "%s %s\n", rowKeyStyle.Render(row.Label+":"), row.Value)
	}
	for i, btn := range v.Buttons {
		fmt.Fprintf(&b, "%s\n", buttonStyle.Render(fmt.Sprintf("[#%d %s]", i+1, btn.Label)))
	}
	style := blockStyle
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(strings.TrimRight(b.String(), "\n "))
}

func terminalText(c conversation.Content) string {
	if t, ok := c.(conversation.Text); ok {
		return terminalBold(string(t))
	}
	return ""
}

func terminalBold(s string) string {
	return boldPattern.ReplaceAllStringFunc(s, func(m string) string {
		return boldStyle.Render(strings.TrimSuffix(strings.TrimPrefix(m, "**"), "**"))
	})
}
