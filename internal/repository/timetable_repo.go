package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
)

// TimetableRepository resolves timetable slots for session creation.
type TimetableRepository interface {
	GetByID(ctx context.Context, id uint) (models.Timetable, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]models.Timetable, error)
}

type timetableRepository struct {
	db *gorm.DB
}

// NewTimetableRepository constructs a timetable repository.
func NewTimetableRepository(db *gorm.DB) TimetableRepository {
	return &timetableRepository{db: db}
}

func (r *timetableRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Timetable{}).
		Preload("Class").
		Preload("Subject").
		Preload("Teacher")
}

func (r *timetableRepository) GetByID(ctx context.Context, id uint) (models.Timetable, error) {
	var slot models.Timetable
	if err := r.baseQuery(ctx).First(&slot, id).Error; err != nil {
		return models.Timetable{}, err
	}

	return slot, nil
}

func (r *timetableRepository) ListForTeacher(ctx context.Context, teacherID uint) ([]models.Timetable, error) {
	var slots []models.Timetable
	err := r.baseQuery(ctx).
		Where("teacher_id = ?", teacherID).
		Order("day_of_week, start_time").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}

	return slots, nil
}
