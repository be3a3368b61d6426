package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/db"
)

// DatabaseStore keeps the audit trail of leave applications in PostgreSQL.
type DatabaseStore struct {
	db *db.DB
}

func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

// SubmissionRecord is one row of leave_submissions.
type SubmissionRecord struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId"`
	LeaveType   string    `json:"leaveType"`
	StartDate   string    `json:"startDate,omitempty"`
	EndDate     string    `json:"endDate,omitempty"`
	Reason      string    `json:"reason"`
	HalfDay     string    `json:"halfDay"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// RecordSubmission implements conversation.Recorder.
func (ds *DatabaseStore) RecordSubmission(ctx context.Context, s conversation.Submission) error {
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}
	var errText sql.NullString
	if s.Err != nil {
		errText = sql.NullString{String: s.Err.Error(), Valid: true}
	}
	const query = `
		INSERT INTO leave_submissions
			(id, session_id, user_id, leave_type, start_date, end_date, reason, half_day, status, message, error, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := ds.db.ExecContext(ctx, query,
		uuid.NewString(),
		s.SessionID,
		s.Draft.UserID,
		s.Draft.LeaveType,
		nullDate(s.Draft.StartDate),
		nullDate(s.Draft.EndDate),
		s.Draft.Reason,
		halfDayOrDefault(s.Draft.HalfDay),
		string(s.Status),
		s.Message,
		errText,
		at.UTC(),
	)
	return errors.Wrap(err, "store: record leave submission")
}

// RecentSubmissions lists a user's latest submissions, newest first.
func (ds *DatabaseStore) RecentSubmissions(ctx context.Context, userID string, limit int) ([]SubmissionRecord, error) {
	if userID == "" {
		return nil, errors.New("store: user id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `
		SELECT id, session_id, user_id, leave_type,
			COALESCE(TO_CHAR(start_date, 'YYYY-MM-DD'), ''),
			COALESCE(TO_CHAR(end_date, 'YYYY-MM-DD'), ''),
			reason, half_day, status, message, COALESCE(error, ''), submitted_at
		FROM leave_submissions
		WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`
	rows, err := ds.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "store: query leave submissions")
	}
	defer rows.Close()

	out := []SubmissionRecord{}
	for rows.Next() {
		var r SubmissionRecord
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.UserID, &r.LeaveType,
			&r.StartDate, &r.EndDate,
			&r.Reason, &r.HalfDay, &r.Status, &r.Message, &r.Error, &r.SubmittedAt,
		); err != nil {
			return nil, errors.Wrap(err, "store: scan leave submission")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "store: iterate leave submissions")
}

func nullDate(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func halfDayOrDefault(s string) string {
	if s == "Y" {
		return "Y"
	}
	return "N"
}
