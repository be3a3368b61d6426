package conversation

import "context"

// Step is the wizard position. StepNone is free-form chat.
type Step string

const (
	StepNone                 Step = "none"
	StepAwaitingLeaveType    Step = "awaiting_leave_type"
	StepAwaitingStartDate    Step = "awaiting_start_date"
	StepAwaitingEndDate      Step = "awaiting_end_date"
	StepAwaitingReason       Step = "awaiting_reason"
	StepAwaitingHalfDay      Step = "awaiting_half_day"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	StepAwaitingBalanceType  Step = "awaiting_balance_type"
)

// Steps lists every step in wizard order.
var Steps = []Step{
	StepNone,
	StepAwaitingLeaveType,
	StepAwaitingStartDate,
	StepAwaitingEndDate,
	StepAwaitingReason,
	StepAwaitingHalfDay,
	StepAwaitingConfirmation,
	StepAwaitingBalanceType,
}

// AwaitsDate reports whether the step is answered through SelectDate.
func (s Step) AwaitsDate() bool {
	return s == StepAwaitingStartDate || s == StepAwaitingEndDate
}

type answerFunc func(c *Controller, ctx context.Context, text string)

// answers interprets typed input for every step other than StepNone. Each
// handler appends exactly one bot message and sets the next step.
var answers = map[Step]answerFunc{
	StepAwaitingLeaveType:    (*Controller).answerLeaveType,
	StepAwaitingStartDate:    (*Controller).answerDateAsText,
	StepAwaitingEndDate:      (*Controller).answerDateAsText,
	StepAwaitingReason:       (*Controller).answerReason,
	StepAwaitingHalfDay:      (*Controller).answerHalfDay,
	StepAwaitingConfirmation: (*Controller).answerConfirmation,
	StepAwaitingBalanceType:  (*Controller).answerBalanceType,
}
