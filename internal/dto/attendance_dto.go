package dto

import (
	"time"

	"github.com/noah-isme/presensi-api/internal/models"
)

// MarkQRRequest presents a scanned QR proof token.
type MarkQRRequest struct {
	Token string `json:"token" validate:"required"`
}

// MarkCodeRequest presents a manually entered short code.
type MarkCodeRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// UpdateAttendanceRequest is a teacher correction for one record.
type UpdateAttendanceRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
}

// BulkMarkEntry is one row of a teacher's bulk submission. Validation is per
// entry: malformed rows are skipped, not fatal.
type BulkMarkEntry struct {
	StudentID uint   `json:"student_id"`
	Status    string `json:"status"`
}

// BulkMarkRequest applies upsert semantics to a whole roster at once.
type BulkMarkRequest struct {
	SessionID uint            `json:"session_id" validate:"required,gt=0"`
	Entries   []BulkMarkEntry `json:"attendance" validate:"required,min=1"`
}

// AttendanceResponse is returned after any marking operation.
type AttendanceResponse struct {
	ID              uint      `json:"id"`
	StudentID       uint      `json:"student_id"`
	SessionID       uint      `json:"session_id"`
	StudentName     string    `json:"student_name,omitempty"`
	RollNo          string    `json:"roll_no,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	Status          string    `json:"status"`
	MarkedAt        time.Time `json:"marked_at"`
	MarkedBy        string    `json:"marked_by"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	SubjectLabel    string    `json:"subject_label,omitempty"`
	// AlreadyMarked is true when the call was a duplicate and the payload
	// reflects the pre-existing record.
	AlreadyMarked bool `json:"already_marked,omitempty"`
}

// BulkMarkResponse summarises a bulk operation.
type BulkMarkResponse struct {
	Records []AttendanceResponse `json:"records"`
	Skipped int                  `json:"skipped"`
}

// RosterEntry is one student of the session's class with current status.
type RosterEntry struct {
	StudentID uint   `json:"student_id"`
	Name      string `json:"name"`
	RollNo    string `json:"roll_no"`
	Status    string `json:"status"`
}

// NewAttendanceResponse converts an Attendance model into a DTO.
func NewAttendanceResponse(model models.Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:              model.ID,
		StudentID:       model.StudentID,
		SessionID:       model.SessionID,
		StudentName:     model.Student.User.Name,
		RollNo:          model.Student.RollNo,
		Subject:         model.Session.Timetable.Subject.Name,
		Status:          model.Status,
		MarkedAt:        model.MarkedAt,
		MarkedBy:        model.MarkedBy,
		ConfidenceScore: model.ConfidenceScore,
		SubjectLabel:    model.SubjectLabel,
	}
}

// NewAttendanceResponseSlice converts a slice of records.
func NewAttendanceResponseSlice(records []models.Attendance) []AttendanceResponse {
	responses := make([]AttendanceResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewAttendanceResponse(record))
	}
	return responses
}
