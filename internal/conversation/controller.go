// Package conversation implements the leave assistant's conversation
// controller: the transcript, the leave draft being assembled and the
// wizard step that decides how each input is interpreted.
package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/hrms"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
)

// ApplyLeaveSentinel starts the leave application wizard when submitted
// from free-form chat. It is sent by the "Apply Leave" quick action.
const ApplyLeaveSentinel = "apply_leave"

// Fields accepted by SelectDate.
const (
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
	FieldLeaveType = "leave_type"
)

const defaultCallTimeout = 20 * time.Second

var (
	ErrUnexpectedSelection = errors.New("conversation: selection does not match the current step")
	ErrUnknownField        = errors.New("conversation: unknown selection field")
	ErrInvalidDate         = errors.New("conversation: invalid date")
)

// Backend is the external HRMS API. *hrms.Client implements it.
type Backend interface {
	Chat(ctx context.Context, question string) (hrms.Answer, error)
	ApplyLeave(ctx context.Context, app hrms.LeaveApplication) (hrms.ApplyLeaveResult, error)
	LeaveBalance(ctx context.Context, userID, leaveType string) (hrms.BalanceResult, error)
}

// Submission is the outcome of one apply-leave call.
type Submission struct {
	SessionID string
	Draft     LeaveDraft
	Status    ResponseStatus
	Message   string
	Err       error
	At        time.Time
}

// Recorder receives every apply-leave outcome.
type Recorder interface {
	RecordSubmission(ctx context.Context, s Submission) error
}

type Controller struct {
	backend     Backend
	catalog     *prompts.Catalog
	recorder    Recorder
	logger      zerolog.Logger
	now         func() time.Time
	userID      string
	sessionID   string
	callTimeout time.Duration

	mu         sync.Mutex
	transcript []Message
	draft      LeaveDraft
	step       Step
}

type Option func(*Controller)

func WithCatalog(c *prompts.Catalog) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.catalog = c
		}
	}
}

func WithUserID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.userID = id
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSessionID tags log lines and recorded submissions.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

func New(backend Backend, opts ...Option) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("conversation: backend is required")
	}
	c := &Controller{
		backend:     backend,
		catalog:     prompts.Default(),
		logger:      zerolog.Nop(),
		now:         time.Now,
		userID:      DefaultUserID,
		callTimeout: defaultCallTimeout,
		step:        StepNone,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessionID != "" {
		c.logger = c.logger.With().Str("session", c.sessionID).Logger()
	}
	c.draft = newDraft(c.userID)
	return c, nil
}

// Catalog returns the texts the controller speaks with.
func (c *Controller) Catalog() *prompts.Catalog { return c.catalog }

func (c *Controller) SessionID() string { return c.sessionID }

// Submit interprets typed input (or a quick action query) and returns the
// messages it appended.
func (c *Controller) Submit(ctx context.Context, text string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := len(c.transcript)

	text = strings.TrimSpace(text)
	if text == "" && c.step != StepAwaitingBalanceType {
		return nil
	}
	if c.step == StepNone && text == ApplyLeaveSentinel {
		c.startApplication()
		return c.appendedSince(start)
	}
	if text != "" {
		c.appendUser(text)
	}
	if c.step == StepNone {
		c.chat(ctx, text)
		return c.appendedSince(start)
	}
	answer, ok := answers[c.step]
	if !ok {
		// unreachable while answers covers every step
		c.logger.Error().Str("step", string(c.step)).Msg("no handler for step")
		c.resetLocked()
		return c.appendedSince(start)
	}
	answer(c, ctx, text)
	return c.appendedSince(start)
}

// SelectDate is the date picker and option button callback.
func (c *Controller) SelectDate(ctx context.Context, field, value string) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := len(c.transcript)

	switch field {
	case FieldStartDate:
		if c.step != StepAwaitingStartDate {
			return nil, errors.Wrapf(ErrUnexpectedSelection, "%s at step %s", field, c.step)
		}
		date, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		if date < c.today() {
			c.appendBot(DatePicker{Field: FieldStartDate, Message: c.catalog.Texts.PastDate})
			return c.appendedSince(start), nil
		}
		c.draft.StartDate = date
		c.step = StepAwaitingEndDate
		c.appendBot(DatePicker{Field: FieldEndDate, Message: c.catalog.Texts.EndDatePrompt})
	case FieldEndDate:
		if c.step != StepAwaitingEndDate {
			return nil, errors.Wrapf(ErrUnexpectedSelection, "%s at step %s", field, c.step)
		}
		date, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		if date < c.today() {
			c.appendBot(DatePicker{Field: FieldEndDate, Message: c.catalog.Texts.PastDate})
			return c.appendedSince(start), nil
		}
		if c.draft.StartDate != "" && date < c.draft.StartDate {
			c.appendBot(DatePicker{Field: FieldEndDate, Message: c.catalog.Texts.EndBeforeStart})
			return c.appendedSince(start), nil
		}
		c.draft.EndDate = date
		c.step = StepAwaitingReason
		c.appendBot(Text(c.catalog.Texts.ReasonPrompt))
	case FieldLeaveType:
		if c.step != StepAwaitingBalanceType {
			return nil, errors.Wrapf(ErrUnexpectedSelection, "%s at step %s", field, c.step)
		}
		c.answerBalanceType(ctx, value)
	default:
		return nil, errors.Wrapf(ErrUnknownField, "%q", field)
	}
	return c.appendedSince(start), nil
}

// RequestBalance looks up the balance of leaveType, or asks which type to
// look up when leaveType is nil. Any wizard in progress is abandoned.
func (c *Controller) RequestBalance(ctx context.Context, leaveType *string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := len(c.transcript)

	c.draft = newDraft(c.userID)
	if leaveType == nil {
		c.step = StepAwaitingBalanceType
		c.appendBot(LeaveTypeSelection{
			Message: c.catalog.Texts.BalancePrompt,
			Options: append([]prompts.Option(nil), c.catalog.BalanceOptions...),
		})
		return c.appendedSince(start)
	}
	t := strings.ToUpper(strings.TrimSpace(*leaveType))
	if !prompts.IsBalanceType(t) {
		c.step = StepNone
		c.appendBot(Text(c.catalog.Texts.InvalidLeaveType))
		return c.appendedSince(start)
	}
	c.lookupBalance(ctx, t)
	return c.appendedSince(start)
}

func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Draft() LeaveDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Reset clears the transcript and returns to free-form chat.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = nil
	c.resetLocked()
}

// today is the earliest date the pickers accept.
func (c *Controller) today() string {
	return c.now().Format(dateLayout)
}

func (c *Controller) resetLocked() {
	c.step = StepNone
	c.draft = newDraft(c.userID)
}

func (c *Controller) startApplication() {
	c.draft = newDraft(c.userID)
	c.step = StepAwaitingLeaveType
	c.appendBot(Text(c.catalog.Texts.LeaveTypePrompt))
}

func (c *Controller) chat(ctx context.Context, question string) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	answer, err := c.backend.Chat(ctx, question)
	if err != nil {
		c.logger.Warn().Err(err).Msg("chat request failed")
		c.appendBot(Text(c.catalog.Texts.ChatFailed))
		return
	}
	if answer.IsConfirmation() {
		c.step = StepAwaitingConfirmation
		c.appendBot(LeaveConfirmation{
			Details: string(answer.Confirmation),
			Message: c.catalog.Texts.ConfirmPrompt,
		})
		return
	}
	c.appendBot(Text(answer.Text))
}

func (c *Controller) answerLeaveType(_ context.Context, text string) {
	c.draft.LeaveType = strings.ToUpper(text)
	c.step = StepAwaitingStartDate
	c.appendBot(DatePicker{Field: FieldStartDate, Message: c.catalog.Texts.StartDatePrompt})
}

// answerDateAsText re-shows the picker; dates arrive through SelectDate.
func (c *Controller) answerDateAsText(_ context.Context, _ string) {
	field, msg := FieldStartDate, c.catalog.Texts.StartDatePrompt
	if c.step == StepAwaitingEndDate {
		field, msg = FieldEndDate, c.catalog.Texts.EndDatePrompt
	}
	c.appendBot(DatePicker{Field: field, Message: msg})
}

func (c *Controller) answerReason(_ context.Context, text string) {
	c.draft.Reason = text
	c.step = StepAwaitingHalfDay
	c.appendBot(Text(c.catalog.Texts.HalfDayPrompt))
}

func (c *Controller) answerHalfDay(_ context.Context, text string) {
	switch strings.ToLower(text) {
	case "y", "yes":
		c.draft.HalfDay = "Y"
	case "n", "no":
		c.draft.HalfDay = "N"
	default:
		c.appendBot(Text(c.catalog.Texts.HalfDayRetry))
		return
	}
	c.step = StepAwaitingConfirmation
	c.appendBot(LeaveConfirmation{
		Details: c.draft.Snapshot(),
		Message: c.catalog.Texts.ConfirmPrompt,
	})
}

func (c *Controller) answerConfirmation(ctx context.Context, text string) {
	switch strings.ToLower(text) {
	case "y", "yes":
		c.submitApplication(ctx)
	case "n", "no":
		c.resetLocked()
		c.appendBot(Text(c.catalog.Texts.Cancelled))
	default:
		c.appendBot(Text(c.catalog.Texts.ConfirmRetry))
	}
}

func (c *Controller) answerBalanceType(ctx context.Context, text string) {
	t := strings.ToUpper(strings.TrimSpace(text))
	if !prompts.IsBalanceType(t) {
		c.appendBot(Text(c.catalog.Texts.InvalidLeaveType))
		return
	}
	c.lookupBalance(ctx, t)
}

// confirmedDraft returns the draft embedded in the latest confirmation
// message, falling back to the live draft.
func (c *Controller) confirmedDraft() LeaveDraft {
	for i := len(c.transcript) - 1; i >= 0; i-- {
		m := c.transcript[i]
		conf, ok := m.Content.(LeaveConfirmation)
		if m.Role != RoleBot || !ok {
			continue
		}
		d, err := ParseSnapshot(conf.Details)
		if err != nil {
			c.logger.Warn().Err(err).Msg("confirmation snapshot unreadable, using live draft")
			break
		}
		if d.UserID == "" {
			d.UserID = c.userID
		}
		if d.HalfDay == "" {
			d.HalfDay = "N"
		}
		return d
	}
	return c.draft
}

func (c *Controller) submitApplication(ctx context.Context) {
	draft := c.confirmedDraft()
	sub := Submission{SessionID: c.sessionID, Draft: draft, Status: StatusError}
	defer func() {
		c.resetLocked()
		c.record(ctx, sub)
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	res, err := c.backend.ApplyLeave(callCtx, draft.Application())
	switch {
	case err != nil:
		c.logger.Warn().Err(err).Msg("apply leave request failed")
		sub.Err = err
		sub.Message = c.catalog.Texts.ApplyFailed
	case strings.TrimSpace(res.Message) == "":
		sub.Err = errors.Errorf("apply leave: empty message with status %q", res.Status)
		c.logger.Warn().Err(sub.Err).Msg("malformed apply leave response")
		sub.Message = c.catalog.Texts.ApplyFailed
	case res.Succeeded():
		sub.Status = StatusSuccess
		sub.Message = res.Message
	default:
		sub.Message = res.Message
	}
	sub.At = c.now()
	c.appendBot(LeaveResponse{Status: sub.Status, Message: sub.Message})
}

func (c *Controller) record(ctx context.Context, sub Submission) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordSubmission(ctx, sub); err != nil {
		c.logger.Error().Err(err).Msg("record leave submission")
	}
}

func (c *Controller) lookupBalance(ctx context.Context, leaveType string) {
	defer c.resetLocked()

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	res, err := c.backend.LeaveBalance(ctx, c.userID, leaveType)
	if err != nil {
		c.logger.Warn().Err(err).Str("leave_type", leaveType).Msg("leave balance request failed")
		c.appendBot(Text(c.catalog.Texts.BalanceFailed))
		return
	}
	details := balanceDetails(res, leaveType)
	if !bool(res.Status) || len(details) == 0 {
		c.appendBot(Text(c.catalog.Texts.BalanceFailed))
		return
	}
	c.appendBot(LeaveBalanceResult{Details: details})
}

// balanceDetails maps leave type label to balance. A specific type keeps
// the matching entry, or the first entry when none matches.
func balanceDetails(res hrms.BalanceResult, leaveType string) map[string]string {
	keys := make([]string, 0, len(res.Data))
	for k := range res.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	label := func(key string) string {
		if e := res.Data[key]; e.LeaveType != "" {
			return e.LeaveType
		}
		return key
	}
	out := make(map[string]string)
	if leaveType == "" {
		for _, k := range keys {
			out[label(k)] = string(res.Data[k].Balance)
		}
		return out
	}
	for _, k := range keys {
		if strings.EqualFold(k, leaveType) || strings.EqualFold(res.Data[k].LeaveType, leaveType) {
			out[label(k)] = string(res.Data[k].Balance)
			return out
		}
	}
	if len(keys) > 0 {
		out[label(keys[0])] = string(res.Data[keys[0]].Balance)
	}
	return out
}

func (c *Controller) appendUser(text string) {
	c.transcript = append(c.transcript, Message{Role: RoleUser, Content: Text(text), Timestamp: c.now()})
}

func (c *Controller) appendBot(content Content) {
	c.transcript = append(c.transcript, Message{Role: RoleBot, Content: content, Timestamp: c.now()})
}

func (c *Controller) appendedSince(start int) []Message {
	if start >= len(c.transcript) {
		return nil
	}
	return append([]Message(nil), c.transcript[start:]...)
}
