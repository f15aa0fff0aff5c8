package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
)

// SessionRepository defines data operations for attendance sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	GetByID(ctx context.Context, id uint) (models.AttendanceSession, error)
	// GetActiveByManualCode resolves the session currently bound to the code,
	// requiring an active session on the given date.
	GetActiveByManualCode(ctx context.Context, code string, date time.Time) (models.AttendanceSession, error)
	// ActiveForClass returns active sessions of the class division on a date.
	ActiveForClass(ctx context.Context, standard, division string, date time.Time) ([]models.AttendanceSession, error)
	ForTeacher(ctx context.Context, teacherID uint, date time.Time) ([]models.AttendanceSession, error)
	// DeactivateForSlot ends all live sessions of a timetable slot on a date.
	DeactivateForSlot(ctx context.Context, timetableID uint, date time.Time) error
	Deactivate(ctx context.Context, id uint) error
	// BindQRNonce atomically replaces the session's bound proof identifier.
	// Fails with gorm.ErrRecordNotFound when the session is missing or ended.
	BindQRNonce(ctx context.Context, sessionID uint, nonce string) error
	// BindManualCode atomically replaces the session's bound short code.
	// Surfaces gorm.ErrDuplicatedKey when the code collides with another
	// active session's binding.
	BindManualCode(ctx context.Context, sessionID uint, code string, issuedAt time.Time) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates the repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.AttendanceSession{}).
		Preload("Timetable").
		Preload("Timetable.Class").
		Preload("Timetable.Subject").
		Preload("Timetable.Teacher")
}

func (r *sessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.AttendanceSession, error) {
	var session models.AttendanceSession
	if err := r.baseQuery(ctx).First(&session, id).Error; err != nil {
		return models.AttendanceSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) GetActiveByManualCode(ctx context.Context, code string, date time.Time) (models.AttendanceSession, error) {
	var session models.AttendanceSession
	if err := r.baseQuery(ctx).
		Where("manual_code = ?", code).
		Where("is_active = ?", true).
		Where("date = ?", dateOnly(date)).
		First(&session).Error; err != nil {
		return models.AttendanceSession{}, err
	}

	return session, nil
}

func (r *sessionRepository) ActiveForClass(ctx context.Context, standard, division string, date time.Time) ([]models.AttendanceSession, error) {
	var sessions []models.AttendanceSession
	err := r.baseQuery(ctx).
		Joins("JOIN timetables ON timetables.id = attendance_sessions.timetable_id").
		Joins("JOIN school_classes ON school_classes.id = timetables.class_id").
		Where("school_classes.standard = ?", standard).
		Where("school_classes.division = ?", division).
		Where("attendance_sessions.date = ?", dateOnly(date)).
		Where("attendance_sessions.is_active = ?", true).
		Order("attendance_sessions.start_time").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) ForTeacher(ctx context.Context, teacherID uint, date time.Time) ([]models.AttendanceSession, error) {
	var sessions []models.AttendanceSession
	err := r.baseQuery(ctx).
		Joins("JOIN timetables ON timetables.id = attendance_sessions.timetable_id").
		Where("timetables.teacher_id = ?", teacherID).
		Where("attendance_sessions.date = ?", dateOnly(date)).
		Order("attendance_sessions.start_time").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) DeactivateForSlot(ctx context.Context, timetableID uint, date time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AttendanceSession{}).
		Where("timetable_id = ?", timetableID).
		Where("date = ?", dateOnly(date)).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

func (r *sessionRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.AttendanceSession{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *sessionRepository) BindQRNonce(ctx context.Context, sessionID uint, nonce string) error {
	result := r.db.WithContext(ctx).Model(&models.AttendanceSession{}).
		Where("id = ?", sessionID).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{
			"qr_nonce": nonce,
			"method":   models.CaptureMethodQR,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *sessionRepository) BindManualCode(ctx context.Context, sessionID uint, code string, issuedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.AttendanceSession{}).
		Where("id = ?", sessionID).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{
			"manual_code":    code,
			"code_issued_at": issuedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// dateOnly truncates a timestamp to its calendar date, matching the column type.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
