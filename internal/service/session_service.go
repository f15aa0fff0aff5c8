package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

// SessionService owns the attendance session lifecycle.
type SessionService interface {
	// Create opens a session for a timetable slot. Any session still live for
	// the same slot and date is deactivated first: one live session per slot
	// per day, creating a new one supersedes the old.
	Create(ctx context.Context, teacherID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error)
	// ActiveForStudent resolves the sessions a student is currently inside,
	// used when a proof does not name a session (biometric flow).
	ActiveForStudent(ctx context.Context, standard, division string, now time.Time) ([]models.AttendanceSession, error)
	ForTeacher(ctx context.Context, teacherID uint, date time.Time) ([]dto.TeacherSessionResponse, error)
	// Deactivate ends a session; idempotent. The teacher must own the slot.
	Deactivate(ctx context.Context, teacherID, sessionID uint) error
	// Roster lists the session's class with each student's current status.
	Roster(ctx context.Context, teacherID, sessionID uint) ([]dto.RosterEntry, error)
}

type sessionService struct {
	sessions   repository.SessionRepository
	timetables repository.TimetableRepository
	students   repository.StudentRepository
	attendance repository.AttendanceRepository
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	sessions repository.SessionRepository,
	timetables repository.TimetableRepository,
	students repository.StudentRepository,
	attendance repository.AttendanceRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) SessionService {
	return &sessionService{
		sessions:   sessions,
		timetables: timetables,
		students:   students,
		attendance: attendance,
		validator:  validate,
		logger:     logger.With().Str("component", "session_service").Logger(),
		now:        time.Now,
	}
}

func (s *sessionService) Create(ctx context.Context, teacherID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	slot, err := s.timetables.GetByID(ctx, payload.TimetableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSlotNotFound
		}
		return dto.SessionResponse{}, err
	}

	if slot.TeacherID != teacherID {
		return dto.SessionResponse{}, ErrNotSessionOwner
	}

	now := s.now()
	date := now
	if payload.Date != nil {
		date = *payload.Date
	}
	startTime := now
	if payload.StartTime != nil {
		startTime = *payload.StartTime
	}
	method := payload.Method
	if method == "" {
		method = models.CaptureMethodManual
	}

	if err := s.sessions.DeactivateForSlot(ctx, slot.ID, date); err != nil {
		return dto.SessionResponse{}, err
	}

	session := models.AttendanceSession{
		TimetableID: slot.ID,
		Date:        truncateToDate(date),
		StartTime:   startTime,
		EndTime:     payload.EndTime,
		IsActive:    true,
		Method:      method,
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	created, err := s.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Uint("session_id", created.ID).Uint("timetable_id", slot.ID).Msg("session created")

	return dto.NewSessionResponse(created), nil
}

func (s *sessionService) ActiveForStudent(ctx context.Context, standard, division string, now time.Time) ([]models.AttendanceSession, error) {
	sessions, err := s.sessions.ActiveForClass(ctx, standard, division, now)
	if err != nil {
		return nil, err
	}

	inWindow := make([]models.AttendanceSession, 0, len(sessions))
	for _, session := range sessions {
		if session.InWindow(now) {
			inWindow = append(inWindow, session)
		}
	}

	return inWindow, nil
}

func (s *sessionService) ForTeacher(ctx context.Context, teacherID uint, date time.Time) ([]dto.TeacherSessionResponse, error) {
	sessions, err := s.sessions.ForTeacher(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TeacherSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		present, err := s.attendance.CountBySessionAndStatus(ctx, session.ID, models.AttendanceStatusPresent)
		if err != nil {
			return nil, err
		}

		class := session.Timetable.Class
		roster, err := s.students.ListByClass(ctx, class.Standard, class.Division)
		if err != nil {
			return nil, err
		}

		responses = append(responses, dto.TeacherSessionResponse{
			SessionResponse: dto.NewSessionResponse(session),
			PresentCount:    present,
			TotalStudents:   int64(len(roster)),
		})
	}

	return responses, nil
}

func (s *sessionService) Deactivate(ctx context.Context, teacherID, sessionID uint) error {
	session, err := s.ownedSession(ctx, teacherID, sessionID)
	if err != nil {
		return err
	}

	return s.sessions.Deactivate(ctx, session.ID)
}

func (s *sessionService) Roster(ctx context.Context, teacherID, sessionID uint) ([]dto.RosterEntry, error) {
	session, err := s.ownedSession(ctx, teacherID, sessionID)
	if err != nil {
		return nil, err
	}

	class := session.Timetable.Class
	students, err := s.students.ListByClass(ctx, class.Standard, class.Division)
	if err != nil {
		return nil, err
	}

	records, err := s.attendance.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	statusByStudent := make(map[uint]string, len(records))
	for _, record := range records {
		statusByStudent[record.StudentID] = record.Status
	}

	roster := make([]dto.RosterEntry, 0, len(students))
	for _, student := range students {
		status, marked := statusByStudent[student.ID]
		if !marked {
			status = models.AttendanceStatusAbsent
		}
		roster = append(roster, dto.RosterEntry{
			StudentID: student.ID,
			Name:      student.User.Name,
			RollNo:    student.RollNo,
			Status:    status,
		})
	}

	return roster, nil
}

func (s *sessionService) ownedSession(ctx context.Context, teacherID, sessionID uint) (models.AttendanceSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AttendanceSession{}, ErrSessionNotFound
		}
		return models.AttendanceSession{}, err
	}

	if session.Timetable.TeacherID != teacherID {
		return models.AttendanceSession{}, ErrNotSessionOwner
	}

	return session, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
