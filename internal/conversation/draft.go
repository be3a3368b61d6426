package conversation

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/hrms"
)

// DefaultUserID is the placeholder employee id the widget applies leave for.
const DefaultUserID = "169"

const dateLayout = "2006-01-02"

// LeaveDraft is the leave application being assembled by the wizard. Dates
// are YYYY-MM-DD; empty means not chosen yet.
type LeaveDraft struct {
	StartDate string
	EndDate   string
	UserID    string
	LeaveType string
	Reason    string
	HalfDay   string
}

func newDraft(userID string) LeaveDraft {
	return LeaveDraft{UserID: userID, HalfDay: "N"}
}

// Application converts the draft to the /apply_leave body.
func (d LeaveDraft) Application() hrms.LeaveApplication {
	app := hrms.LeaveApplication{
		UserID:    d.UserID,
		LeaveType: d.LeaveType,
		Reason:    d.Reason,
		HalfDay:   d.HalfDay,
	}
	if d.StartDate != "" {
		s := d.StartDate
		app.StartDate = &s
	}
	if d.EndDate != "" {
		e := d.EndDate
		app.EndDate = &e
	}
	return app
}

// Snapshot serializes the draft for embedding in a confirmation message.
func (d LeaveDraft) Snapshot() string {
	b, _ := json.Marshal(d.Application())
	return string(b)
}

// ParseSnapshot is the inverse of Snapshot. It also accepts the details
// object of a backend-prepared confirmation.
func ParseSnapshot(s string) (LeaveDraft, error) {
	var app hrms.LeaveApplication
	if err := json.Unmarshal([]byte(s), &app); err != nil {
		return LeaveDraft{}, errors.Wrap(err, "conversation: parse draft snapshot")
	}
	d := LeaveDraft{
		UserID:    app.UserID,
		LeaveType: app.LeaveType,
		Reason:    app.Reason,
		HalfDay:   app.HalfDay,
	}
	if app.StartDate != nil {
		d.StartDate = *app.StartDate
	}
	if app.EndDate != nil {
		d.EndDate = *app.EndDate
	}
	return d, nil
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, whose UTC date is
// used.
func parseDate(v string) (string, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t.Format(dateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidDate, "%q", v)
	}
	return t.UTC().Format(dateLayout), nil
}
