package hrms

import (
	"bytes"
	"encoding/json"
	"strings"
)

// AnswerTypeLeaveConfirmation marks a /chat answer that asks the user to
// confirm a leave application prepared by the backend.
const AnswerTypeLeaveConfirmation = "leave_confirmation"

// Answer is the decoded "answer" field of a /chat response. Exactly one of
// Text or Confirmation is set.
type Answer struct {
	Text string
	// Confirmation holds the compacted "details" object of a
	// leave_confirmation answer.
	Confirmation json.RawMessage
}

func (a Answer) IsConfirmation() bool { return len(a.Confirmation) > 0 }

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer json.RawMessage `json:"answer"`
}

// parseAnswer accepts either a plain string or a structured object.
func parseAnswer(raw json.RawMessage) (Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Answer{}, ErrEmptyAnswer
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Answer{}, err
		}
		if strings.TrimSpace(s) == "" {
			return Answer{}, ErrEmptyAnswer
		}
		return Answer{Text: s}, nil
	case '{':
		var obj struct {
			Type    string          `json:"type"`
			Details json.RawMessage `json:"details"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Answer{}, err
		}
		if obj.Type != AnswerTypeLeaveConfirmation {
			return Answer{Text: string(raw)}, nil
		}
		details := bytes.TrimSpace(obj.Details)
		if len(details) == 0 || bytes.Equal(details, []byte("null")) {
			details = []byte("{}")
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, details); err != nil {
			return Answer{}, err
		}
		return Answer{Confirmation: buf.Bytes()}, nil
	default:
		return Answer{Text: string(raw)}, nil
	}
}

// LeaveApplication is the /apply_leave request body. Dates are YYYY-MM-DD
// strings and encode as null when unset.
type LeaveApplication struct {
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
	UserID    string  `json:"user_id"`
	LeaveType string  `json:"Leave_type"`
	Reason    string  `json:"reason"`
	HalfDay   string  `json:"half_day"`
}

// UnmarshalJSON also accepts "leave_type", which backend-prepared
// confirmations use instead of "Leave_type". Scalar fields may arrive as
// numbers or booleans; a boolean half_day maps to "Y" or "N".
func (a *LeaveApplication) UnmarshalJSON(b []byte) error {
	var aux struct {
		StartDate    *Amount `json:"startDate"`
		EndDate      *Amount `json:"endDate"`
		UserID       Amount  `json:"user_id"`
		LeaveType    Amount  `json:"Leave_type"`
		AltLeaveType Amount  `json:"leave_type"`
		Reason       Amount  `json:"reason"`
		HalfDay      Amount  `json:"half_day"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = LeaveApplication{
		StartDate: optionalString(aux.StartDate),
		EndDate:   optionalString(aux.EndDate),
		UserID:    string(aux.UserID),
		LeaveType: string(aux.LeaveType),
		Reason:    string(aux.Reason),
		HalfDay:   string(aux.HalfDay),
	}
	if a.LeaveType == "" {
		a.LeaveType = string(aux.AltLeaveType)
	}
	switch a.HalfDay {
	case "true":
		a.HalfDay = "Y"
	case "false":
		a.HalfDay = "N"
	}
	return nil
}

func optionalString(v *Amount) *string {
	if v == nil || *v == "" {
		return nil
	}
	s := string(*v)
	return &s
}

type ApplyLeaveResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r ApplyLeaveResult) Succeeded() bool { return r.Status == "success" }

type balanceRequest struct {
	UserID    string `json:"user_id"`
	LeaveType string `json:"leave_type"`
}

type BalanceEntry struct {
	LeaveType string `json:"leave_type"`
	Balance   Amount `json:"leave_balance"`
}

type BalanceResult struct {
	Status Flag                    `json:"status"`
	Data   map[string]BalanceEntry `json:"data"`
}

// Amount is a balance that the backend may send as a number or a string.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(b)
	}
	return nil
}

// Flag decodes a truthy status: booleans as is, non-empty strings other
// than "false", and non-zero numbers.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case string:
		*f = Flag(t != "" && !strings.EqualFold(t, "false"))
	case float64:
		*f = Flag(t != 0)
	default:
		*f = false
	}
	return nil
}
