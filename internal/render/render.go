// Package render maps transcript messages to views: a JSON-friendly View for
// the browser widget and styled text for the terminal widget. Rendering never
// changes conversation state; buttons call back into the controller through
// Callbacks.
package render

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
)

type Kind string

const (
	KindText               Kind = "text"
	KindDatePicker         Kind = conversation.TypeDatePicker
	KindLeaveTypeSelection Kind = conversation.TypeLeaveTypeSelection
	KindLeaveConfirmation  Kind = conversation.TypeLeaveConfirmation
	KindLeaveBalance       Kind = conversation.TypeLeaveBalance
	KindLeaveResponse      Kind = conversation.TypeLeaveResponse
)

type Action string

const (
	// ActionSend submits Value as if typed.
	ActionSend Action = "send"
	// ActionSelect calls the date/option callback with Field and Value.
	ActionSelect Action = "select"
)

type Button struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Action Action `json:"action"`
	Field  string `json:"field,omitempty"`
}

type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type View struct {
	Role    conversation.Role `json:"role"`
	Author  string            `json:"author"`
	Time    string            `json:"time"`
	HTML    string            `json:"html"`
	Kind    Kind              `json:"kind"`
	Field   string            `json:"field,omitempty"`
	MinDate string            `json:"minDate,omitempty"`
	Title   string            `json:"title,omitempty"`
	Buttons []Button          `json:"buttons,omitempty"`
	Rows    []Row             `json:"rows,omitempty"`
	Success bool              `json:"success,omitempty"`
}

const (
	unknownTime       = "Unknown time"
	confirmationTitle = "Leave Request Details"
	balanceTitle      = "Leave Balance"
)

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

type Renderer struct {
	catalog *prompts.Catalog
	loc     *time.Location
	now     func() time.Time
}

type Option func(*Renderer)

// WithLocation sets the zone message times are shown in. Defaults to local.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithClock sets the clock the date pickers' earliest date comes from.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

func New(catalog *prompts.Catalog, opts ...Option) *Renderer {
	if catalog == nil {
		catalog = prompts.Default()
	}
	r := &Renderer{catalog: catalog, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Render(m conversation.Message) View {
	v := View{
		Role:   m.Role,
		Author: r.author(m.Role),
		Time:   r.clock(m.Timestamp),
		Kind:   KindText,
	}
	switch c := m.Content.(type) {
	case conversation.Text:
		v.HTML = HTMLLite(string(c))
	case conversation.DatePicker:
		v.Kind = KindDatePicker
		v.Field = c.Field
		v.MinDate = r.now().In(r.loc).Format("2006-01-02")
		v.Title = c.Message
		v.HTML = HTMLLite(c.Message)
	case conversation.LeaveTypeSelection:
		v.Kind = KindLeaveTypeSelection
		v.Title = c.Message
		v.HTML = HTMLLite(c.Message)
		for _, o := range c.Options {
			v.Buttons = append(v.Buttons, Button{
				Label:  o.Label,
				Value:  o.Value,
				Action: ActionSelect,
				Field:  conversation.FieldLeaveType,
			})
		}
	case conversation.LeaveConfirmation:
		v.Kind = KindLeaveConfirmation
		v.Title = confirmationTitle
		v.HTML = HTMLLite(c.Message)
		v.Rows = r.confirmationRows(c.Details)
		v.Buttons = []Button{
			{Label: "Cancel", Value: "N", Action: ActionSend},
			{Label: "Confirm", Value: "Y", Action: ActionSend},
		}
	case conversation.LeaveBalanceResult:
		v.Kind = KindLeaveBalance
		v.Title = balanceTitle
		v.Rows = balanceRows(c.Details)
	case conversation.LeaveResponse:
		v.Kind = KindLeaveResponse
		v.HTML = HTMLLite(c.Message)
		v.Success = IsSuccess(c)
	}
	return v
}

// RenderAll renders messages in order.
func (r *Renderer) RenderAll(ms []conversation.Message) []View {
	out := make([]View, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.Render(m))
	}
	return out
}

func (r *Renderer) author(role conversation.Role) string {
	if role == conversation.RoleBot {
		return r.catalog.AssistantName
	}
	return r.catalog.UserName
}

func (r *Renderer) clock(ts time.Time) string {
	if ts.IsZero() {
		return unknownTime
	}
	return ts.In(r.loc).Format("15:04")
}

func (r *Renderer) confirmationRows(details string) []Row {
	d, err := conversation.ParseSnapshot(details)
	if err != nil {
		return []Row{{Label: "Details", Value: details}}
	}
	var rows []Row
	if d.UserID != "" {
		rows = append(rows, Row{Label: "User ID", Value: d.UserID})
	}
	rows = append(rows,
		Row{Label: "Start Date", Value: d.StartDate},
		Row{Label: "End Date", Value: d.EndDate},
		Row{Label: "Type", Value: r.catalog.LeaveTypeName(d.LeaveType)},
		Row{Label: "Reason", Value: d.Reason},
	)
	if d.HalfDay == "Y" {
		rows = append(rows, Row{Label: "Duration", Value: "Half Day"})
	}
	return rows
}

func balanceRows(details map[string]string) []Row {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, Row{Label: k, Value: details[k]})
	}
	return rows
}

// IsSuccess treats a response as successful when its status says so or its
// message mentions success.
func IsSuccess(r conversation.LeaveResponse) bool {
	return r.Status == conversation.StatusSuccess ||
		strings.Contains(strings.ToLower(r.Message), "success")
}

// HTMLLite escapes s and turns **bold** spans into <b> elements.
func HTMLLite(s string) string {
	return boldPattern.ReplaceAllString(html.EscapeString(s), "<b>$1</b>")
}
