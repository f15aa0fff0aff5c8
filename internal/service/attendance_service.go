package service

import (
	"context"
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

// EventPublisher pushes marking events to the live feed. Implementations must
// not block the marking path; failures are logged, never surfaced.
type EventPublisher interface {
	PublishMark(ctx context.Context, event dto.FeedEvent)
}

// MarkCommand is one marking attempt after proof verification.
type MarkCommand struct {
	StudentID       uint
	Session         models.AttendanceSession
	Status          string
	MarkedBy        string
	ConfidenceScore *float64
	SubjectLabel    string
}

// AttendanceService records and corrects attendance.
type AttendanceService interface {
	// MarkByQR marks the calling student present against a scanned QR proof.
	MarkByQR(ctx context.Context, userID uint, payload dto.MarkQRRequest) (dto.AttendanceResponse, error)
	// MarkByCode marks the calling student present against a manual code.
	MarkByCode(ctx context.Context, userID uint, payload dto.MarkCodeRequest) (dto.AttendanceResponse, error)
	// Mark writes one record. A second mark for the same pair returns the
	// existing record wrapped in AlreadyMarkedError instead of a new row.
	Mark(ctx context.Context, cmd MarkCommand) (models.Attendance, error)
	// Update is a teacher correction of an existing or missing record.
	Update(ctx context.Context, teacherID, sessionID uint, payload dto.UpdateAttendanceRequest) (dto.AttendanceResponse, error)
	// BulkMark upserts a whole roster submission, skipping malformed entries.
	BulkMark(ctx context.Context, teacherID uint, payload dto.BulkMarkRequest) (dto.BulkMarkResponse, error)
	ListBySession(ctx context.Context, teacherID, sessionID uint) ([]dto.AttendanceResponse, error)
}

// ProofVerifier is the subset of ProofService marking depends on.
type ProofVerifier interface {
	VerifyQR(ctx context.Context, token string) (models.AttendanceSession, error)
	VerifyManualCode(ctx context.Context, code string) (models.AttendanceSession, error)
}

type attendanceService struct {
	attendance repository.AttendanceRepository
	sessions   repository.SessionRepository
	students   repository.StudentRepository
	proofs     ProofVerifier
	publisher  EventPublisher
	sanitizer  *bluemonday.Policy
	tracer     trace.Tracer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAttendanceService constructs an AttendanceService instance. The publisher
// may be nil when the live feed is disabled.
func NewAttendanceService(
	attendance repository.AttendanceRepository,
	sessions repository.SessionRepository,
	students repository.StudentRepository,
	proofs ProofVerifier,
	publisher EventPublisher,
	logger zerolog.Logger,
) AttendanceService {
	return &attendanceService{
		attendance: attendance,
		sessions:   sessions,
		students:   students,
		proofs:     proofs,
		publisher:  publisher,
		sanitizer:  bluemonday.StrictPolicy(),
		tracer:     otel.Tracer("github.com/noah-isme/presensi-api/internal/service/attendance"),
		logger:     logger.With().Str("component", "attendance_service").Logger(),
		now:        time.Now,
	}
}

func (s *attendanceService) MarkByQR(ctx context.Context, userID uint, payload dto.MarkQRRequest) (dto.AttendanceResponse, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	session, err := s.proofs.VerifyQR(ctx, payload.Token)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	return s.markSelf(ctx, student, session, models.MarkedByQR)
}

func (s *attendanceService) MarkByCode(ctx context.Context, userID uint, payload dto.MarkCodeRequest) (dto.AttendanceResponse, error) {
	student, err := s.studentByUser(ctx, userID)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	session, err := s.proofs.VerifyManualCode(ctx, payload.Code)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	return s.markSelf(ctx, student, session, models.MarkedByManual)
}

func (s *attendanceService) markSelf(ctx context.Context, student models.Student, session models.AttendanceSession, markedBy string) (dto.AttendanceResponse, error) {
	class := session.Timetable.Class
	if student.Standard != class.Standard || student.Division != class.Division {
		return dto.AttendanceResponse{}, ErrSessionNotFound
	}

	record, err := s.Mark(ctx, MarkCommand{
		StudentID:    student.ID,
		Session:      session,
		Status:       models.AttendanceStatusPresent,
		MarkedBy:     markedBy,
		SubjectLabel: session.Timetable.Subject.Name,
	})
	if err != nil {
		var dup *AlreadyMarkedError
		if errors.As(err, &dup) {
			response := dto.NewAttendanceResponse(dup.Existing)
			response.AlreadyMarked = true
			return response, nil
		}
		return dto.AttendanceResponse{}, err
	}

	return dto.NewAttendanceResponse(record), nil
}

func (s *attendanceService) Mark(ctx context.Context, cmd MarkCommand) (models.Attendance, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.mark", trace.WithAttributes(
		attribute.Int("session.id", int(cmd.Session.ID)),
		attribute.Int("student.id", int(cmd.StudentID)),
		attribute.String("marked.by", cmd.MarkedBy),
	))
	defer span.End()

	if !cmd.Session.IsActive {
		return models.Attendance{}, ErrSessionInactive
	}

	status := cmd.Status
	if !models.ValidAttendanceStatus(status) {
		status = models.AttendanceStatusPresent
	}

	record := models.Attendance{
		StudentID:       cmd.StudentID,
		SessionID:       cmd.Session.ID,
		Status:          status,
		MarkedAt:        s.now(),
		MarkedBy:        cmd.MarkedBy,
		ConfidenceScore: cmd.ConfidenceScore,
		SubjectLabel:    s.sanitizer.Sanitize(cmd.SubjectLabel),
	}

	if err := s.attendance.Create(ctx, &record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, lookupErr := s.attendance.GetByPair(ctx, cmd.StudentID, cmd.Session.ID)
			if lookupErr != nil {
				return models.Attendance{}, lookupErr
			}
			return models.Attendance{}, &AlreadyMarkedError{Existing: existing}
		}
		return models.Attendance{}, err
	}

	created, err := s.attendance.GetByPair(ctx, cmd.StudentID, cmd.Session.ID)
	if err != nil {
		return models.Attendance{}, err
	}

	s.logger.Info().
		Uint("student_id", created.StudentID).
		Uint("session_id", created.SessionID).
		Str("marked_by", created.MarkedBy).
		Msg("attendance marked")

	s.publish(ctx, created)

	return created, nil
}

func (s *attendanceService) Update(ctx context.Context, teacherID, sessionID uint, payload dto.UpdateAttendanceRequest) (dto.AttendanceResponse, error) {
	session, err := s.ownedSession(ctx, teacherID, sessionID)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	record, err := s.attendance.GetByPair(ctx, payload.StudentID, session.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, err
		}
		// No record yet: a correction creates one attributed to the teacher.
		created, markErr := s.Mark(ctx, MarkCommand{
			StudentID:    payload.StudentID,
			Session:      session,
			Status:       payload.Status,
			MarkedBy:     models.MarkedByTeacher,
			SubjectLabel: session.Timetable.Subject.Name,
		})
		if markErr != nil {
			return dto.AttendanceResponse{}, markErr
		}
		return dto.NewAttendanceResponse(created), nil
	}

	record.Status = payload.Status
	record.MarkedBy = models.MarkedByTeacher
	record.MarkedAt = s.now()
	if err := s.attendance.Update(ctx, &record); err != nil {
		return dto.AttendanceResponse{}, err
	}

	s.publish(ctx, record)

	return dto.NewAttendanceResponse(record), nil
}

func (s *attendanceService) BulkMark(ctx context.Context, teacherID uint, payload dto.BulkMarkRequest) (dto.BulkMarkResponse, error) {
	session, err := s.ownedSession(ctx, teacherID, payload.SessionID)
	if err != nil {
		return dto.BulkMarkResponse{}, err
	}

	response := dto.BulkMarkResponse{Records: make([]dto.AttendanceResponse, 0, len(payload.Entries))}
	for _, entry := range payload.Entries {
		if entry.StudentID == 0 || !models.ValidAttendanceStatus(entry.Status) {
			response.Skipped++
			continue
		}

		updated, err := s.Update(ctx, teacherID, session.ID, dto.UpdateAttendanceRequest{
			StudentID: entry.StudentID,
			Status:    entry.Status,
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Uint("student_id", entry.StudentID).
				Uint("session_id", session.ID).
				Msg("bulk entry skipped")
			response.Skipped++
			continue
		}

		response.Records = append(response.Records, updated)
	}

	return response, nil
}

func (s *attendanceService) ListBySession(ctx context.Context, teacherID, sessionID uint) ([]dto.AttendanceResponse, error) {
	session, err := s.ownedSession(ctx, teacherID, sessionID)
	if err != nil {
		return nil, err
	}

	records, err := s.attendance.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(records), nil
}

func (s *attendanceService) studentByUser(ctx context.Context, userID uint) (models.Student, error) {
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}

	return student, nil
}

func (s *attendanceService) ownedSession(ctx context.Context, teacherID, sessionID uint) (models.AttendanceSession, error) {
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

func (s *attendanceService) publish(ctx context.Context, record models.Attendance) {
	if s.publisher == nil {
		return
	}

	s.publisher.PublishMark(ctx, dto.FeedEvent{
		SessionID:   record.SessionID,
		StudentID:   record.StudentID,
		StudentName: record.Student.User.Name,
		RollNo:      record.Student.RollNo,
		Status:      record.Status,
		Method:      record.MarkedBy,
		MarkedAt:    record.MarkedAt,
	})
}
