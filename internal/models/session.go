package models

import "time"

// Capture methods supported for a session.
const (
	CaptureMethodManual = "manual"
	CaptureMethodQR     = "qr"
	CaptureMethodFace   = "face"
)

// AttendanceSession is one scheduled class meeting eligible for attendance
// capture. At most one proof (QR nonce or manual code) is bound to a session
// at a time; issuing a new proof overwrites the previous binding, which is the
// revocation mechanism for still-unexpired proofs.
type AttendanceSession struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TimetableID uint       `gorm:"not null;index:idx_session_slot_date" json:"timetable_id"`
	Date        time.Time  `gorm:"type:date;not null;index:idx_session_slot_date" json:"date"`
	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IsActive    bool       `gorm:"default:true;index" json:"is_active"`
	Method      string     `gorm:"size:20;default:manual" json:"method"`

	// QRNonce is the proof identifier currently bound to the session. A QR
	// token whose nonce differs from this value is superseded even if its
	// embedded expiry has not passed.
	QRNonce string `gorm:"size:64;index" json:"-"`
	// ManualCode is the short code currently bound to the session. Uniqueness
	// is only meaningful among active sessions; the partial unique index is
	// declared in database.Migrate.
	ManualCode   string     `gorm:"size:6;index" json:"-"`
	CodeIssuedAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Timetable Timetable `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"timetable"`
}

// InWindow reports whether now falls inside the session's capture window.
// A session without an end time stays open until deactivated.
func (s AttendanceSession) InWindow(now time.Time) bool {
	if now.Before(s.StartTime) {
		return false
	}
	if s.EndTime != nil && now.After(*s.EndTime) {
		return false
	}
	return true
}
