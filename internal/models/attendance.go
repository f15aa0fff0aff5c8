package models

import "time"

// Attendance statuses.
const (
	AttendanceStatusPresent = "present"
	AttendanceStatusAbsent  = "absent"
	AttendanceStatusLate    = "late"
)

// Marking methods recorded as provenance on attendance records.
const (
	MarkedByQR      = "qr"
	MarkedByManual  = "manual"
	MarkedByTeacher = "teacher"
	MarkedByFace    = "face"
	MarkedBySystem  = "system"
)

// ValidAttendanceStatus reports whether the status is a supported value.
func ValidAttendanceStatus(status string) bool {
	switch status {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance is the outcome of one marking event. The (student, session) pair
// is unique at the storage layer; concurrent inserts for the same pair lose
// the race with a duplicate-key error rather than creating a second row.
type Attendance struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	StudentID uint   `gorm:"not null;uniqueIndex:idx_attendance_pair" json:"student_id"`
	SessionID uint   `gorm:"not null;uniqueIndex:idx_attendance_pair" json:"session_id"`
	Status    string `gorm:"size:20;default:present" json:"status"`

	MarkedAt time.Time `gorm:"not null" json:"marked_at"`
	MarkedBy string    `gorm:"size:20;default:system" json:"marked_by"`

	// ConfidenceScore is set for biometric marking only.
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	SubjectLabel    string   `gorm:"size:100" json:"subject_label,omitempty"`

	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Student   Student           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Session   AttendanceSession `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"session"`
}
