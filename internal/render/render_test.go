package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/hrms"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
)

var at = time.Date(2025, 1, 10, 14, 7, 0, 0, time.UTC)

func newTestRenderer() *Renderer {
	return New(prompts.Default(), WithLocation(time.UTC), WithClock(func() time.Time { return at }))
}

func TestRenderText(t *testing.T) {
	r := newTestRenderer()

	v := r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.Text("You have **12** days <left>"), Timestamp: at})
	require.Equal(t, "UKNOWVA HRMS Assistant", v.Author)
	require.Equal(t, "14:07", v.Time)
	require.Equal(t, KindText, v.Kind)
	require.Equal(t, "You have <b>12</b> days &lt;left&gt;", v.HTML)

	v = r.Render(conversation.Message{Role: conversation.RoleUser, Content: conversation.Text("hi")})
	require.Equal(t, "You", v.Author)
	require.Equal(t, "Unknown time", v.Time)
}

func TestHTMLLite(t *testing.T) {
	require.Equal(t, "<b>a</b> and <b>b</b>", HTMLLite("**a** and **b**"))
	require.Equal(t, "**", HTMLLite("**"))
	require.Equal(t, "&amp; <b>&lt;i&gt;</b>", HTMLLite("& **<i>**"))
}

func TestRenderConfirmation(t *testing.T) {
	r := newTestRenderer()
	d := conversation.LeaveDraft{StartDate: "2025-01-10", EndDate: "2025-01-12", UserID: "169", LeaveType: "PL", Reason: "trip", HalfDay: "Y"}
	v := r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.LeaveConfirmation{Details: d.Snapshot(), Message: "Please confirm"}, Timestamp: at})

	require.Equal(t, KindLeaveConfirmation, v.Kind)
	require.Equal(t, "Leave Request Details", v.Title)
	require.Equal(t, []Row{
		{Label: "User ID", Value: "169"},
		{Label: "Start Date", Value: "2025-01-10"},
		{Label: "End Date", Value: "2025-01-12"},
		{Label: "Type", Value: "Privilege Leave"},
		{Label: "Reason", Value: "trip"},
		{Label: "Duration", Value: "Half Day"},
	}, v.Rows)
	require.Equal(t, []Button{
		{Label: "Cancel", Value: "N", Action: ActionSend},
		{Label: "Confirm", Value: "Y", Action: ActionSend},
	}, v.Buttons)

	v = r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.LeaveConfirmation{Details: `{"leave_type":"XL","reason":"r"}`}})
	require.Equal(t, Row{Label: "Start Date", Value: ""}, v.Rows[0])
	require.Equal(t, Row{Label: "Type", Value: "XL"}, v.Rows[2])
	require.Len(t, v.Rows, 4)

	v = r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.LeaveConfirmation{Details: "garbled"}})
	require.Equal(t, []Row{{Label: "Details", Value: "garbled"}}, v.Rows)
}

func TestRenderSelectionAndBalance(t *testing.T) {
	r := newTestRenderer()
	v := r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.LeaveTypeSelection{
		Message: "Select leave type to check:",
		Options: []prompts.Option{{Label: "All Types", Value: ""}, {Label: "Sick Leave (SL)", Value: "SL"}},
	}})
	require.Equal(t, []Button{
		{Label: "All Types", Value: "", Action: ActionSelect, Field: conversation.FieldLeaveType},
		{Label: "Sick Leave (SL)", Value: "SL", Action: ActionSelect, Field: conversation.FieldLeaveType},
	}, v.Buttons)

	v = r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.LeaveBalanceResult{Details: map[string]string{"Sick Leave": "3", "Casual Leave": "4"}}})
	require.Equal(t, KindLeaveBalance, v.Kind)
	require.Equal(t, []Row{{Label: "Casual Leave", Value: "4"}, {Label: "Sick Leave", Value: "3"}}, v.Rows)

	v = r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.DatePicker{Field: "endDate", Message: "Select end date:"}})
	require.Equal(t, KindDatePicker, v.Kind)
	require.Equal(t, "endDate", v.Field)
	require.Equal(t, "2025-01-10", v.MinDate)

	late := New(prompts.Default(), WithLocation(time.FixedZone("IST", 5*3600+1800)), WithClock(func() time.Time {
		return time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)
	}))
	v = late.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.DatePicker{Field: "startDate", Message: "Select start date:"}})
	require.Equal(t, "2025-01-11", v.MinDate)
	require.Empty(t, r.Render(conversation.Message{Role: conversation.RoleBot, Content: conversation.Text("hi")}).MinDate)
}

func TestLeaveResponseSuccess(t *testing.T) {
	require.True(t, IsSuccess(conversation.LeaveResponse{Status: conversation.StatusSuccess}))
	require.True(t, IsSuccess(conversation.LeaveResponse{Status: conversation.StatusError, Message: "Leave applied Successfully"}))
	require.False(t, IsSuccess(conversation.LeaveResponse{Status: conversation.StatusError, Message: "Insufficient balance"}))
}

func TestTerminal(t *testing.T) {
	r := newTestRenderer()
	out := r.Terminal(conversation.Message{Role: conversation.RoleBot, Content: conversation.LeaveTypeSelection{
		Message: "Select leave type to check:",
		Options: prompts.Default().BalanceOptions,
	}, Timestamp: at}, 60)
	require.Contains(t, out, "UKNOWVA HRMS Assistant")
	require.Contains(t, out, "#1 All Types")
	require.Contains(t, out, "#4 Sick Leave (SL)")

	out = r.Terminal(conversation.Message{Role: conversation.RoleUser, Content: conversation.Text("plain words")}, 0)
	require.Contains(t, out, "You")
	require.Contains(t, out, "plain words")
}

type stubBackend struct{}

func (stubBackend) Chat(context.Context, string) (hrms.Answer, error) {
	return hrms.Answer{Text: "ok"}, nil
}

func (stubBackend) ApplyLeave(context.Context, hrms.LeaveApplication) (hrms.ApplyLeaveResult, error) {
	return hrms.ApplyLeaveResult{Status: "success", Message: "applied"}, nil
}

func (stubBackend) LeaveBalance(context.Context, string, string) (hrms.BalanceResult, error) {
	return hrms.BalanceResult{Status: true, Data: map[string]hrms.BalanceEntry{"CL": {LeaveType: "CL", Balance: "2"}}}, nil
}

func TestActivateDrivesController(t *testing.T) {
	ctx := context.Background()
	c, err := conversation.New(stubBackend{}, conversation.WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	r := newTestRenderer()
	cb := Bind(c)

	out := c.RequestBalance(ctx, nil)
	v := r.Render(out[0])
	out, err = Activate(ctx, cb, v.Buttons[1])
	require.NoError(t, err)
	require.Equal(t, conversation.LeaveBalanceResult{Details: map[string]string{"CL": "2"}}, out[0].Content)

	c.Submit(ctx, conversation.ApplyLeaveSentinel)
	c.Submit(ctx, "CL")
	_, err = cb.OnDateSelect(ctx, conversation.FieldStartDate, "2025-01-10")
	require.NoError(t, err)
	_, err = cb.OnDateSelect(ctx, conversation.FieldEndDate, "2025-01-10")
	require.NoError(t, err)
	c.Submit(ctx, "errand")
	out = c.Submit(ctx, "n")
	v = r.Render(out[len(out)-1])
	out, err = Activate(ctx, cb, v.Buttons[1])
	require.NoError(t, err)
	require.Equal(t, conversation.LeaveResponse{Status: conversation.StatusSuccess, Message: "applied"}, out[len(out)-1].Content)

	_, err = Activate(ctx, cb, Button{Action: "wiggle"})
	require.Error(t, err)
}
