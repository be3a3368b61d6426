package conversation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/hrms"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
)

type fakeBackend struct {
	mu sync.Mutex

	answer     hrms.Answer
	chatErr    error
	applyRes   hrms.ApplyLeaveResult
	applyErr   error
	balance    hrms.BalanceResult
	balanceErr error
	block      bool

	questions []string
	applied   []hrms.LeaveApplication
	balances  [][2]string
}

func (f *fakeBackend) Chat(ctx context.Context, q string) (hrms.Answer, error) {
	f.mu.Lock()
	f.questions = append(f.questions, q)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return hrms.Answer{}, ctx.Err()
	}
	return f.answer, f.chatErr
}

func (f *fakeBackend) ApplyLeave(ctx context.Context, app hrms.LeaveApplication) (hrms.ApplyLeaveResult, error) {
	f.mu.Lock()
	f.applied = append(f.applied, app)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return hrms.ApplyLeaveResult{}, ctx.Err()
	}
	return f.applyRes, f.applyErr
}

func (f *fakeBackend) LeaveBalance(ctx context.Context, userID, leaveType string) (hrms.BalanceResult, error) {
	f.mu.Lock()
	f.balances = append(f.balances, [2]string{userID, leaveType})
	f.mu.Unlock()
	return f.balance, f.balanceErr
}

type recorderFunc func(ctx context.Context, s Submission) error

func (r recorderFunc) RecordSubmission(ctx context.Context, s Submission) error { return r(ctx, s) }

var fixedNow = time.Date(2025, 1, 9, 10, 30, 0, 0, time.UTC)

func newTestController(t *testing.T, b Backend, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	c, err := New(b, opts...)
	require.NoError(t, err)
	return c
}

func strp(s string) *string { return &s }

// walkToConfirmation drives the wizard up to the confirmation prompt.
func walkToConfirmation(t *testing.T, c *Controller, halfDay string) {
	t.Helper()
	ctx := context.Background()
	c.Submit(ctx, ApplyLeaveSentinel)
	c.Submit(ctx, "cl")
	_, err := c.SelectDate(ctx, FieldStartDate, "2025-01-10")
	require.NoError(t, err)
	_, err = c.SelectDate(ctx, FieldEndDate, "2025-01-12")
	require.NoError(t, err)
	c.Submit(ctx, "family event")
	c.Submit(ctx, halfDay)
	require.Equal(t, StepAwaitingConfirmation, c.Step())
}

func TestAnswersCoverEveryStep(t *testing.T) {
	for _, s := range Steps {
		if s == StepNone {
			_, ok := answers[s]
			require.False(t, ok, "free-form chat is not a wizard step")
			continue
		}
		require.Contains(t, answers, s)
	}
	require.Len(t, answers, len(Steps)-1)
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestApplyLeaveWizard(t *testing.T) {
	b := &fakeBackend{applyRes: hrms.ApplyLeaveResult{Status: "success", Message: "Leave applied successfully"}}
	c := newTestController(t, b)
	ctx := context.Background()

	out := c.Submit(ctx, ApplyLeaveSentinel)
	require.Len(t, out, 1)
	require.Equal(t, RoleBot, out[0].Role)
	require.Equal(t, StepAwaitingLeaveType, c.Step())

	out = c.Submit(ctx, "CL")
	require.Len(t, out, 2)
	require.Equal(t, Text("CL"), out[0].Content)
	require.Equal(t, DatePicker{Field: FieldStartDate, Message: "Select start date:"}, out[1].Content)
	require.Equal(t, StepAwaitingStartDate, c.Step())

	out, err := c.SelectDate(ctx, FieldStartDate, "2025-01-10")
	require.NoError(t, err)
	require.Equal(t, []Message{{Role: RoleBot, Content: DatePicker{Field: FieldEndDate, Message: "Select end date:"}, Timestamp: fixedNow}}, out)

	out, err = c.SelectDate(ctx, FieldEndDate, "2025-01-12")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, Text("Please provide reason for leave:"), out[0].Content)

	c.Submit(ctx, "family event")
	require.Equal(t, StepAwaitingHalfDay, c.Step())

	out = c.Submit(ctx, "N")
	require.Len(t, out, 2)
	conf, ok := out[1].Content.(LeaveConfirmation)
	require.True(t, ok)
	require.Equal(t, "Please confirm your leave application (Y/N):", conf.Message)
	require.Equal(t, StepAwaitingConfirmation, c.Step())

	out = c.Submit(ctx, "Y")
	require.Len(t, out, 2)
	require.Equal(t, LeaveResponse{Status: StatusSuccess, Message: "Leave applied successfully"}, out[1].Content)

	require.Len(t, b.applied, 1)
	app := b.applied[0]
	require.Equal(t, "CL", app.LeaveType)
	require.Equal(t, "2025-01-10", *app.StartDate)
	require.Equal(t, "2025-01-12", *app.EndDate)
	require.Equal(t, "family event", app.Reason)
	require.Equal(t, "N", app.HalfDay)
	require.Equal(t, DefaultUserID, app.UserID)
	require.Empty(t, b.questions)

	require.Equal(t, StepNone, c.Step())
	require.Equal(t, newDraft(DefaultUserID), c.Draft())
}

func TestWizardInputsNeverReachChat(t *testing.T) {
	b := &fakeBackend{}
	c := newTestController(t, b)
	walkToConfirmation(t, c, "y")
	c.Submit(context.Background(), "maybe")
	require.Empty(t, b.questions)
}

func TestDraftAccumulatesVisitedSteps(t *testing.T) {
	c := newTestController(t, &fakeBackend{})
	ctx := context.Background()

	c.Submit(ctx, ApplyLeaveSentinel)
	require.Equal(t, newDraft(DefaultUserID), c.Draft())

	c.Submit(ctx, "pl")
	require.Equal(t, LeaveDraft{UserID: DefaultUserID, LeaveType: "PL", HalfDay: "N"}, c.Draft())

	_, err := c.SelectDate(ctx, FieldStartDate, "2025-03-01T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, "2025-03-01", c.Draft().StartDate)
	require.Empty(t, c.Draft().EndDate)
}

func TestApplyLeaveSentinelRestartsFromAnyTranscript(t *testing.T) {
	b := &fakeBackend{answer: hrms.Answer{Text: "hello"}}
	c := newTestController(t, b)
	ctx := context.Background()
	c.Submit(ctx, "hi")
	c.RequestBalance(ctx, nil)
	c.Submit(ctx, "xx")
	require.Equal(t, StepAwaitingBalanceType, c.Step())
	c.Submit(ctx, "cl")
	require.Equal(t, StepNone, c.Step())

	c.Submit(ctx, ApplyLeaveSentinel)
	require.Equal(t, StepAwaitingLeaveType, c.Step())
}

func TestConfirmationAnswers(t *testing.T) {
	for _, in := range []string{"Y", "y", "yes", "YES", "Yes"} {
		t.Run("submit "+in, func(t *testing.T) {
			b := &fakeBackend{applyRes: hrms.ApplyLeaveResult{Status: "success", Message: "ok"}}
			c := newTestController(t, b)
			walkToConfirmation(t, c, "N")
			c.Submit(context.Background(), in)
			require.Len(t, b.applied, 1)
			require.Equal(t, StepNone, c.Step())
		})
	}
	for _, in := range []string{"N", "n", "no", "NO"} {
		t.Run("cancel "+in, func(t *testing.T) {
			b := &fakeBackend{}
			c := newTestController(t, b)
			walkToConfirmation(t, c, "N")
			out := c.Submit(context.Background(), in)
			require.Equal(t, Text("Leave application cancelled."), out[len(out)-1].Content)
			require.Empty(t, b.applied)
			require.Equal(t, StepNone, c.Step())
			require.Equal(t, newDraft(DefaultUserID), c.Draft())
		})
	}
	for _, in := range []string{"maybe", "ok", "yess"} {
		t.Run("other "+in, func(t *testing.T) {
			b := &fakeBackend{}
			c := newTestController(t, b)
			walkToConfirmation(t, c, "N")
			before := c.Draft()
			out := c.Submit(context.Background(), in)
			require.Len(t, out, 2)
			require.Equal(t, Text(prompts.Default().Texts.ConfirmRetry), out[1].Content)
			require.Equal(t, StepAwaitingConfirmation, c.Step())
			require.Equal(t, before, c.Draft())
			require.Empty(t, b.applied)
		})
	}
}

func TestHalfDayNormalization(t *testing.T) {
	for in, want := range map[string]string{"y": "Y", "YES": "Y", "n": "N", "No": "N"} {
		c := newTestController(t, &fakeBackend{})
		walkToConfirmation(t, c, in)
		require.Equal(t, want, c.Draft().HalfDay, in)
	}

	c := newTestController(t, &fakeBackend{})
	ctx := context.Background()
	c.Submit(ctx, ApplyLeaveSentinel)
	c.Submit(ctx, "SL")
	_, err := c.SelectDate(ctx, FieldStartDate, "2025-01-10")
	require.NoError(t, err)
	_, err = c.SelectDate(ctx, FieldEndDate, "2025-01-10")
	require.NoError(t, err)
	c.Submit(ctx, "fever")
	out := c.Submit(ctx, "half")
	require.Equal(t, Text(prompts.Default().Texts.HalfDayRetry), out[1].Content)
	require.Equal(t, StepAwaitingHalfDay, c.Step())
}

func TestApplyLeaveFailures(t *testing.T) {
	cases := map[string]*fakeBackend{
		"transport":     {applyErr: errors.New("connection refused")},
		"status":        {applyErr: &hrms.StatusError{StatusCode: 500, Path: "/apply_leave"}},
		"empty message": {applyRes: hrms.ApplyLeaveResult{Status: "success"}},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestController(t, b)
			walkToConfirmation(t, c, "N")
			out := c.Submit(context.Background(), "y")
			require.Len(t, out, 2)
			require.Equal(t, LeaveResponse{Status: StatusError, Message: "Failed to submit leave application. Please try again."}, out[1].Content)
			require.Equal(t, StepNone, c.Step())
			require.Equal(t, newDraft(DefaultUserID), c.Draft())
		})
	}
}

func TestApplyLeaveRejectedKeepsBackendMessage(t *testing.T) {
	b := &fakeBackend{applyRes: hrms.ApplyLeaveResult{Status: "failed", Message: "Insufficient balance"}}
	c := newTestController(t, b)
	walkToConfirmation(t, c, "N")
	out := c.Submit(context.Background(), "yes")
	require.Equal(t, LeaveResponse{Status: StatusError, Message: "Insufficient balance"}, out[1].Content)
}

func TestApplyLeaveTimeoutResetsStep(t *testing.T) {
	b := &fakeBackend{block: true}
	c := newTestController(t, b, WithCallTimeout(20*time.Millisecond))
	walkToConfirmation(t, c, "N")
	out := c.Submit(context.Background(), "y")
	require.Equal(t, StatusError, out[1].Content.(LeaveResponse).Status)
	require.Equal(t, StepNone, c.Step())
}

func TestRecorderReceivesOutcome(t *testing.T) {
	var got []Submission
	rec := recorderFunc(func(_ context.Context, s Submission) error {
		got = append(got, s)
		return errors.New("db down")
	})
	b := &fakeBackend{applyRes: hrms.ApplyLeaveResult{Status: "success", Message: "done"}}
	c := newTestController(t, b, WithRecorder(rec), WithSessionID("s-1"))
	walkToConfirmation(t, c, "N")
	c.Submit(context.Background(), "y")

	require.Len(t, got, 1)
	require.Equal(t, "s-1", got[0].SessionID)
	require.Equal(t, StatusSuccess, got[0].Status)
	require.Equal(t, "CL", got[0].Draft.LeaveType)
	require.Equal(t, fixedNow, got[0].At)
	require.Equal(t, StepNone, c.Step())
}

func TestEndDateBeforeStartDate(t *testing.T) {
	c := newTestController(t, &fakeBackend{})
	ctx := context.Background()
	c.Submit(ctx, ApplyLeaveSentinel)
	c.Submit(ctx, "CL")
	_, err := c.SelectDate(ctx, FieldStartDate, "2025-01-10")
	require.NoError(t, err)
	out, err := c.SelectDate(ctx, FieldEndDate, "2025-01-09")
	require.NoError(t, err)
	require.Equal(t, DatePicker{Field: FieldEndDate, Message: prompts.Default().Texts.EndBeforeStart}, out[0].Content)
	require.Equal(t, StepAwaitingEndDate, c.Step())
	require.Empty(t, c.Draft().EndDate)
}

func TestPastDatesReprompt(t *testing.T) {
	c := newTestController(t, &fakeBackend{})
	ctx := context.Background()
	texts := prompts.Default().Texts
	c.Submit(ctx, ApplyLeaveSentinel)
	c.Submit(ctx, "CL")

	out, err := c.SelectDate(ctx, FieldStartDate, "2025-01-08")
	require.NoError(t, err)
	require.Equal(t, []Message{{Role: RoleBot, Content: DatePicker{Field: FieldStartDate, Message: texts.PastDate}, Timestamp: fixedNow}}, out)
	require.Equal(t, StepAwaitingStartDate, c.Step())
	require.Empty(t, c.Draft().StartDate)

	_, err = c.SelectDate(ctx, FieldStartDate, fixedNow.Format("2006-01-02"))
	require.NoError(t, err)
	out, err = c.SelectDate(ctx, FieldEndDate, "2024-12-31")
	require.NoError(t, err)
	require.Equal(t, DatePicker{Field: FieldEndDate, Message: texts.PastDate}, out[0].Content)
	require.Equal(t, StepAwaitingEndDate, c.Step())
	require.Empty(t, c.Draft().EndDate)
}

func TestSelectDateErrors(t *testing.T) {
	c := newTestController(t, &fakeBackend{})
	ctx := context.Background()

	_, err := c.SelectDate(ctx, FieldStartDate, "2025-01-10")
	require.ErrorIs(t, err, ErrUnexpectedSelection)
	_, err = c.SelectDate(ctx, FieldLeaveType, "CL")
	require.ErrorIs(t, err, ErrUnexpectedSelection)
	_, err = c.SelectDate(ctx, "colour", "red")
	require.ErrorIs(t, err, ErrUnknownField)

	c.Submit(ctx, ApplyLeaveSentinel)
	c.Submit(ctx, "CL")
	_, err = c.SelectDate(ctx, FieldEndDate, "2025-01-10")
	require.ErrorIs(t, err, ErrUnexpectedSelection)
	_, err = c.SelectDate(ctx, FieldStartDate, "10/01/2025")
	require.ErrorIs(t, err, ErrInvalidDate)
	require.Equal(t, StepAwaitingStartDate, c.Step())
}

func TestTypedTextAtDateStepRepromptsPicker(t *testing.T) {
	c := newTestController(t, &fakeBackend{})
	ctx := context.Background()
	c.Submit(ctx, ApplyLeaveSentinel)
	c.Submit(ctx, "CL")
	out := c.Submit(ctx, "tomorrow")
	require.Len(t, out, 2)
	require.Equal(t, DatePicker{Field: FieldStartDate, Message: "Select start date:"}, out[1].Content)
	require.Equal(t, StepAwaitingStartDate, c.Step())
}

func TestChatPlainAnswer(t *testing.T) {
	b := &fakeBackend{answer: hrms.Answer{Text: "You have **12** days left."}}
	c := newTestController(t, b)
	out := c.Submit(context.Background(), "What is my leave balance?")
	require.Len(t, out, 2)
	require.Equal(t, RoleUser, out[0].Role)
	require.Equal(t, Message{Role: RoleBot, Content: Text("You have **12** days left."), Timestamp: fixedNow}, out[1])
	require.Equal(t, StepNone, c.Step())
	require.Equal(t, []string{"What is my leave balance?"}, b.questions)
}

func TestChatFailureAppendsFixedText(t *testing.T) {
	for name, b := range map[string]*fakeBackend{
		"error": {chatErr: errors.New("boom")},
		"empty": {chatErr: hrms.ErrEmptyAnswer},
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestController(t, b)
			out := c.Submit(context.Background(), "policy?")
			require.Len(t, out, 2)
			require.Equal(t, Text("Sorry, I encountered an error. Please try again."), out[1].Content)
			require.Equal(t, StepNone, c.Step())
		})
	}
}

func TestBackendInitiatedConfirmation(t *testing.T) {
	details := `{"startDate":"2025-02-03","endDate":"2025-02-04","user_id":"169","leave_type":"SL","reason":"flu","half_day":"N"}`
	b := &fakeBackend{
		answer:   hrms.Answer{Confirmation: json.RawMessage(details)},
		applyRes: hrms.ApplyLeaveResult{Status: "success", Message: "ok"},
	}
	c := newTestController(t, b)
	ctx := context.Background()

	out := c.Submit(ctx, "apply sick leave for 3rd and 4th Feb")
	require.Equal(t, LeaveConfirmation{Details: details, Message: "Please confirm your leave application (Y/N):"}, out[1].Content)
	require.Equal(t, StepAwaitingConfirmation, c.Step())

	c.Submit(ctx, "yes")
	require.Len(t, b.applied, 1)
	require.Equal(t, "SL", b.applied[0].LeaveType)
	require.Equal(t, "2025-02-03", *b.applied[0].StartDate)
	require.Equal(t, "flu", b.applied[0].Reason)
}

func TestBackendConfirmationWithNumericUserID(t *testing.T) {
	details := `{"user_id":169,"leave_type":"CL","startDate":"2025-01-10","endDate":"2025-01-11","reason":"trip","half_day":"N"}`
	b := &fakeBackend{
		answer:   hrms.Answer{Confirmation: json.RawMessage(details)},
		applyRes: hrms.ApplyLeaveResult{Status: "success", Message: "ok"},
	}
	c := newTestController(t, b, WithUserID("42"))
	ctx := context.Background()

	c.Submit(ctx, "casual leave on 10th and 11th Jan")
	require.Equal(t, StepAwaitingConfirmation, c.Step())
	c.Submit(ctx, "Y")

	require.Len(t, b.applied, 1)
	app := b.applied[0]
	require.Equal(t, "169", app.UserID)
	require.Equal(t, "CL", app.LeaveType)
	require.Equal(t, "2025-01-10", *app.StartDate)
	require.Equal(t, "2025-01-11", *app.EndDate)
	require.Equal(t, "trip", app.Reason)
}

func TestUnreadableSnapshotFallsBackToLiveDraft(t *testing.T) {
	b := &fakeBackend{applyRes: hrms.ApplyLeaveResult{Status: "success", Message: "ok"}}
	c := newTestController(t, b)
	walkToConfirmation(t, c, "N")

	c.mu.Lock()
	last := len(c.transcript) - 1
	conf := c.transcript[last].Content.(LeaveConfirmation)
	conf.Details = "{not json"
	c.transcript[last].Content = conf
	c.mu.Unlock()

	c.Submit(context.Background(), "y")
	require.Len(t, b.applied, 1)
	require.Equal(t, "family event", b.applied[0].Reason)
}

func TestSnapshotRoundTrip(t *testing.T) {
	drafts := []LeaveDraft{
		{StartDate: "2025-01-10", EndDate: "2025-01-12", UserID: "169", LeaveType: "CL", Reason: "family event", HalfDay: "N"},
		{UserID: "7", LeaveType: "SL", Reason: `quote " and \ slash`, HalfDay: "Y"},
		newDraft(DefaultUserID),
	}
	for _, d := range drafts {
		got, err := ParseSnapshot(d.Snapshot())
		require.NoError(t, err)
		require.Equal(t, d, got)
	}

	_, err := ParseSnapshot("nope")
	require.Error(t, err)
}

func TestSnapshotWireKeys(t *testing.T) {
	d := LeaveDraft{StartDate: "2025-01-10", UserID: "169", LeaveType: "CL", HalfDay: "N"}
	require.JSONEq(t,
		`{"startDate":"2025-01-10","endDate":null,"user_id":"169","Leave_type":"CL","reason":"","half_day":"N"}`,
		d.Snapshot())
}

func TestRequestBalanceSelection(t *testing.T) {
	b := &fakeBackend{balance: hrms.BalanceResult{Status: true, Data: map[string]hrms.BalanceEntry{
		"CL": {LeaveType: "Casual Leave", Balance: "4"},
		"PL": {LeaveType: "Privilege Leave", Balance: "10.5"},
	}}}
	c := newTestController(t, b)
	ctx := context.Background()

	out := c.RequestBalance(ctx, nil)
	sel, ok := out[0].Content.(LeaveTypeSelection)
	require.True(t, ok)
	require.Equal(t, "Select leave type to check:", sel.Message)
	require.Len(t, sel.Options, 4)
	require.Equal(t, StepAwaitingBalanceType, c.Step())

	out = c.Submit(ctx, "")
	require.Len(t, out, 1)
	require.Equal(t, LeaveBalanceResult{Details: map[string]string{"Casual Leave": "4", "Privilege Leave": "10.5"}}, out[0].Content)
	require.Equal(t, [][2]string{{DefaultUserID, ""}}, b.balances)
	require.Equal(t, StepNone, c.Step())
}

func TestBalanceTypeValidation(t *testing.T) {
	for _, in := range []string{"cl", "PL", "Sl"} {
		b := &fakeBackend{balance: hrms.BalanceResult{Status: true, Data: map[string]hrms.BalanceEntry{"x": {LeaveType: "X", Balance: "1"}}}}
		c := newTestController(t, b)
		c.RequestBalance(context.Background(), nil)
		c.Submit(context.Background(), in)
		require.Len(t, b.balances, 1, in)
		require.Equal(t, StepNone, c.Step())
	}
	for _, in := range []string{"ML", "casual", "C L"} {
		b := &fakeBackend{}
		c := newTestController(t, b)
		c.RequestBalance(context.Background(), nil)
		out := c.Submit(context.Background(), in)
		require.Equal(t, Text("Invalid leave type. Please select from the options above."), out[len(out)-1].Content)
		require.Equal(t, StepAwaitingBalanceType, c.Step(), in)
		require.Empty(t, b.balances)
	}
}

func TestBalanceTypesIgnoreCatalogOptions(t *testing.T) {
	cat := prompts.Default()
	cat.BalanceOptions = []prompts.Option{{Label: "Maternity", Value: "ML"}}
	b := &fakeBackend{balance: hrms.BalanceResult{Status: true, Data: map[string]hrms.BalanceEntry{"PL": {LeaveType: "Privilege Leave", Balance: "9"}}}}
	c := newTestController(t, b, WithCatalog(cat))
	ctx := context.Background()

	ml := "ML"
	out := c.RequestBalance(ctx, &ml)
	require.Equal(t, Text(cat.Texts.InvalidLeaveType), out[0].Content)
	require.Empty(t, b.balances)

	pl := "PL"
	c.RequestBalance(ctx, &pl)
	require.Equal(t, [][2]string{{DefaultUserID, "PL"}}, b.balances)
}

func TestBalanceOptionButton(t *testing.T) {
	b := &fakeBackend{balance: hrms.BalanceResult{Status: true, Data: map[string]hrms.BalanceEntry{
		"SL": {LeaveType: "Sick Leave", Balance: "3"},
	}}}
	c := newTestController(t, b)
	ctx := context.Background()
	c.RequestBalance(ctx, nil)
	out, err := c.SelectDate(ctx, FieldLeaveType, "SL")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, LeaveBalanceResult{Details: map[string]string{"Sick Leave": "3"}}, out[0].Content)
}

func TestRequestBalanceDirect(t *testing.T) {
	b := &fakeBackend{balance: hrms.BalanceResult{Status: true, Data: map[string]hrms.BalanceEntry{
		"CL": {LeaveType: "Casual Leave", Balance: "4"},
		"PL": {LeaveType: "Privilege Leave", Balance: "10"},
	}}}
	c := newTestController(t, b, WithUserID("42"))
	ctx := context.Background()

	c.Submit(ctx, ApplyLeaveSentinel)
	out := c.RequestBalance(ctx, strp("pl"))
	require.Equal(t, LeaveBalanceResult{Details: map[string]string{"Privilege Leave": "10"}}, out[0].Content)
	require.Equal(t, [][2]string{{"42", "PL"}}, b.balances)
	require.Equal(t, StepNone, c.Step())

	out = c.RequestBalance(ctx, strp("ML"))
	require.Equal(t, Text(prompts.Default().Texts.InvalidLeaveType), out[0].Content)
	require.Len(t, b.balances, 1)
}

func TestBalanceFailures(t *testing.T) {
	for name, b := range map[string]*fakeBackend{
		"error":  {balanceErr: errors.New("timeout")},
		"status": {balance: hrms.BalanceResult{Status: false}},
		"empty":  {balance: hrms.BalanceResult{Status: true}},
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestController(t, b)
			c.RequestBalance(context.Background(), nil)
			out := c.Submit(context.Background(), "CL")
			require.Equal(t, Text("Failed to fetch leave balance. Please try again."), out[len(out)-1].Content)
			require.Equal(t, StepNone, c.Step())
		})
	}
}

func TestBlankInputIgnored(t *testing.T) {
	b := &fakeBackend{}
	c := newTestController(t, b)
	require.Nil(t, c.Submit(context.Background(), "   "))
	require.Empty(t, c.Transcript())
	require.Empty(t, b.questions)
}

func TestResetClearsTranscript(t *testing.T) {
	c := newTestController(t, &fakeBackend{})
	c.Submit(context.Background(), ApplyLeaveSentinel)
	c.Reset()
	require.Empty(t, c.Transcript())
	require.Equal(t, StepNone, c.Step())
}

func TestConcurrentSubmitsAppendInOrder(t *testing.T) {
	b := &fakeBackend{answer: hrms.Answer{Text: "pong"}}
	c := newTestController(t, b)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Submit(context.Background(), "ping")
		}()
	}
	wg.Wait()
	tr := c.Transcript()
	require.Len(t, tr, 40)
	for i := 0; i < len(tr); i += 2 {
		require.Equal(t, RoleUser, tr[i].Role)
		require.Equal(t, RoleBot, tr[i+1].Role)
	}
}
