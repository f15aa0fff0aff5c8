package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/presensi-api/internal/models"
)

// Failure taxonomy for verification and marking. Handlers translate these to
// HTTP responses; everything else is an internal error.
var (
	// ErrProofSuperseded means the presented proof is no longer the one bound
	// to its session (a newer proof was issued, or the session ended).
	ErrProofSuperseded = errors.New("proof superseded")
	// ErrCodeNotFound covers unknown, expired and rebound manual codes alike
	// so callers cannot enumerate live codes.
	ErrCodeNotFound    = errors.New("invalid or expired code")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInactive = errors.New("session is not active")
	ErrStudentNotFound = errors.New("student not found")
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrSlotNotFound    = errors.New("timetable slot not found")
	// ErrNotSessionOwner is returned when a teacher operates on a session of
	// another teacher's timetable slot.
	ErrNotSessionOwner = errors.New("session belongs to another teacher")

	// ErrAlreadyMarked is matched by errors.Is against AlreadyMarkedError.
	// It is informational: the pair already has its one record.
	ErrAlreadyMarked = errors.New("attendance already marked")
)

// AlreadyMarkedError carries the existing record so idempotent client retries
// can be answered with the original outcome.
type AlreadyMarkedError struct {
	Existing models.Attendance
}

func (e *AlreadyMarkedError) Error() string {
	return fmt.Sprintf("attendance already marked for student %d in session %d", e.Existing.StudentID, e.Existing.SessionID)
}

// Is makes errors.Is(err, ErrAlreadyMarked) succeed.
func (e *AlreadyMarkedError) Is(target error) bool {
	return target == ErrAlreadyMarked
}
