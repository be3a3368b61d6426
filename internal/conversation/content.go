package conversation

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Content tags used on the wire for structured content.
const (
	TypeDatePicker         = "date_picker"
	TypeLeaveTypeSelection = "leave_type_selection"
	TypeLeaveConfirmation  = "leave_confirmation"
	TypeLeaveBalance       = "leave_balance"
	TypeLeaveResponse      = "leave_response"
)

// Content is either Text or one of the structured blocks below.
type Content interface {
	isContent()
}

type Text string

type DatePicker struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type LeaveTypeSelection struct {
	Message string           `json:"message"`
	Options []prompts.Option `json:"options"`
}

// LeaveConfirmation carries the serialized draft the user is asked to
// confirm. Details is the single source of truth at submission time.
type LeaveConfirmation struct {
	Details string `json:"details"`
	Message string `json:"message"`
}

type LeaveBalanceResult struct {
	Details map[string]string `json:"details"`
}

type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

type LeaveResponse struct {
	Status  ResponseStatus `json:"status"`
	Message string         `json:"message"`
}

func (Text) isContent()               {}
func (DatePicker) isContent()         {}
func (LeaveTypeSelection) isContent() {}
func (LeaveConfirmation) isContent()  {}
func (LeaveBalanceResult) isContent() {}
func (LeaveResponse) isContent()      {}

// Message is one transcript entry.
type Message struct {
	Role      Role
	Content   Content
	Timestamp time.Time
}

type wireMessage struct {
	Role      Role            `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	content, err := marshalContent(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{
		Role:      m.Role,
		Content:   content,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	content, err := unmarshalContent(w.Content)
	if err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return errors.Wrap(err, "conversation: parse message timestamp")
	}
	*m = Message{Role: w.Role, Content: content, Timestamp: ts}
	return nil
}

func marshalContent(c Content) ([]byte, error) {
	tagged := func(typ string, v any) ([]byte, error) {
		fields, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(fields, &obj); err != nil {
			return nil, err
		}
		obj["type"], _ = json.Marshal(typ)
		return json.Marshal(obj)
	}
	switch v := c.(type) {
	case Text:
		return json.Marshal(string(v))
	case DatePicker:
		return tagged(TypeDatePicker, v)
	case LeaveTypeSelection:
		return tagged(TypeLeaveTypeSelection, v)
	case LeaveConfirmation:
		return tagged(TypeLeaveConfirmation, v)
	case LeaveBalanceResult:
		return tagged(TypeLeaveBalance, v)
	case LeaveResponse:
		return tagged(TypeLeaveResponse, v)
	case nil:
		return []byte("null"), nil
	default:
		return nil, errors.Errorf("conversation: unknown content %T", c)
	}
}

func unmarshalContent(raw json.RawMessage) (Content, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return Text(s), nil
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	var (
		c   Content
		err error
	)
	switch head.Type {
	case TypeDatePicker:
		var v DatePicker
		err = json.Unmarshal(raw, &v)
		c = v
	case TypeLeaveTypeSelection:
		var v LeaveTypeSelection
		err = json.Unmarshal(raw, &v)
		c = v
	case TypeLeaveConfirmation:
		var v LeaveConfirmation
		err = json.Unmarshal(raw, &v)
		c = v
	case TypeLeaveBalance:
		var v LeaveBalanceResult
		err = json.Unmarshal(raw, &v)
		c = v
	case TypeLeaveResponse:
		var v LeaveResponse
		err = json.Unmarshal(raw, &v)
		c = v
	default:
		return nil, errors.Errorf("conversation: unknown content type %q", head.Type)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
