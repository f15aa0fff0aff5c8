package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
)

// ReportFilter narrows attendance report queries.
type ReportFilter struct {
	StudentID *uint
	TeacherID *uint
	Standard  *string
	Division  *string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// AttendanceRepository defines data operations for attendance records.
// Create relies on the storage-level uniqueness of (student_id, session_id):
// losing a concurrent insert race yields gorm.ErrDuplicatedKey, which the
// service layer normalizes rather than surfacing as a generic failure.
type AttendanceRepository interface {
	GetByPair(ctx context.Context, studentID, sessionID uint) (models.Attendance, error)
	Create(ctx context.Context, record *models.Attendance) error
	Update(ctx context.Context, record *models.Attendance) error
	ListBySession(ctx context.Context, sessionID uint) ([]models.Attendance, error)
	ListForReport(ctx context.Context, filter ReportFilter) ([]models.Attendance, error)
	CountBySessionAndStatus(ctx context.Context, sessionID uint, status string) (int64, error)
	// ListByStudentBetween returns a student's records whose session date
	// falls inside [from, to].
	ListByStudentBetween(ctx context.Context, studentID uint, from, to time.Time) ([]models.Attendance, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates the repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Attendance{}).
		Preload("Student").
		Preload("Student.User").
		Preload("Session").
		Preload("Session.Timetable").
		Preload("Session.Timetable.Class").
		Preload("Session.Timetable.Subject")
}

func (r *attendanceRepository) GetByPair(ctx context.Context, studentID, sessionID uint) (models.Attendance, error) {
	var record models.Attendance
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("session_id = ?", sessionID).
		First(&record).Error; err != nil {
		return models.Attendance{}, err
	}

	return record, nil
}

func (r *attendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepository) Update(ctx context.Context, record *models.Attendance) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *attendanceRepository) ListBySession(ctx context.Context, sessionID uint) ([]models.Attendance, error) {
	var records []models.Attendance
	if err := r.baseQuery(ctx).
		Where("session_id = ?", sessionID).
		Order("marked_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) ListForReport(ctx context.Context, filter ReportFilter) ([]models.Attendance, error) {
	query := r.baseQuery(ctx).
		Joins("JOIN attendance_sessions ON attendance_sessions.id = attendances.session_id").
		Joins("JOIN timetables ON timetables.id = attendance_sessions.timetable_id")

	if filter.StudentID != nil {
		query = query.Where("attendances.student_id = ?", *filter.StudentID)
	}

	if filter.TeacherID != nil {
		query = query.Where("timetables.teacher_id = ?", *filter.TeacherID)
	}

	if filter.Standard != nil || filter.Division != nil {
		query = query.Joins("JOIN school_classes ON school_classes.id = timetables.class_id")
		if filter.Standard != nil {
			query = query.Where("school_classes.standard = ?", *filter.Standard)
		}
		if filter.Division != nil {
			query = query.Where("school_classes.division = ?", *filter.Division)
		}
	}

	if filter.DateFrom != nil {
		query = query.Where("attendance_sessions.date >= ?", dateOnly(*filter.DateFrom))
	}

	if filter.DateTo != nil {
		query = query.Where("attendance_sessions.date <= ?", dateOnly(*filter.DateTo))
	}

	var records []models.Attendance
	if err := query.Order("attendance_sessions.date DESC, attendances.marked_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *attendanceRepository) CountBySessionAndStatus(ctx context.Context, sessionID uint, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Attendance{}).
		Where("session_id = ?", sessionID).
		Where("status = ?", status).
		Count(&count).Error

	return count, err
}

func (r *attendanceRepository) ListByStudentBetween(ctx context.Context, studentID uint, from, to time.Time) ([]models.Attendance, error) {
	var records []models.Attendance
	err := r.baseQuery(ctx).
		Joins("JOIN attendance_sessions ON attendance_sessions.id = attendances.session_id").
		Where("attendances.student_id = ?", studentID).
		Where("attendance_sessions.date >= ?", dateOnly(from)).
		Where("attendance_sessions.date <= ?", dateOnly(to)).
		Order("attendance_sessions.date DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}
