package dto

import (
	"time"

	"github.com/noah-isme/presensi-api/internal/models"
)

// SessionCreateRequest starts a new attendance session for a timetable slot.
type SessionCreateRequest struct {
	TimetableID uint       `json:"timetable_id" validate:"required,gt=0"`
	Date        *time.Time `json:"date" validate:"omitempty"`
	StartTime   *time.Time `json:"start_time" validate:"omitempty"`
	EndTime     *time.Time `json:"end_time" validate:"omitempty"`
	Method      string     `json:"method" validate:"omitempty,oneof=manual qr face"`
}

// SessionResponse is returned to API clients when viewing sessions.
type SessionResponse struct {
	ID         uint       `json:"id"`
	Subject    string     `json:"subject"`
	ClassName  string     `json:"class_name"`
	Teacher    string     `json:"teacher"`
	RoomNumber string     `json:"room_number,omitempty"`
	Date       time.Time  `json:"date"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	IsActive   bool       `json:"is_active"`
	Method     string     `json:"method"`
}

// TeacherSessionResponse adds live counts for the teacher's session list.
type TeacherSessionResponse struct {
	SessionResponse
	PresentCount  int64 `json:"present_count"`
	TotalStudents int64 `json:"total_students"`
}

// QRProofResponse carries a freshly issued QR proof.
type QRProofResponse struct {
	SessionID uint      `json:"session_id"`
	Token     string    `json:"token"`
	QRImage   string    `json:"qr_image"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int       `json:"expires_in"`
}

// ManualCodeResponse carries a freshly issued manual code.
type ManualCodeResponse struct {
	SessionID uint   `json:"session_id"`
	Code      string `json:"code"`
	ExpiresIn int    `json:"expires_in"`
}

// NewSessionResponse converts an AttendanceSession model into a DTO.
func NewSessionResponse(model models.AttendanceSession) SessionResponse {
	class := model.Timetable.Class
	return SessionResponse{
		ID:         model.ID,
		Subject:    model.Timetable.Subject.Name,
		ClassName:  class.Standard + "-" + class.Division,
		Teacher:    model.Timetable.Teacher.User.Name,
		RoomNumber: model.Timetable.RoomNumber,
		Date:       model.Date,
		StartTime:  model.StartTime,
		EndTime:    model.EndTime,
		IsActive:   model.IsActive,
		Method:     model.Method,
	}
}

// NewSessionResponseSlice converts a slice of sessions.
func NewSessionResponseSlice(sessions []models.AttendanceSession) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, NewSessionResponse(session))
	}
	return responses
}
