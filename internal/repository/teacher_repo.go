package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
)

// TeacherRepository resolves teacher records for authenticated users.
type TeacherRepository interface {
	GetByUserID(ctx context.Context, userID uint) (models.Teacher, error)
}

type teacherRepository struct {
	db *gorm.DB
}

// NewTeacherRepository constructs a teacher repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) GetByUserID(ctx context.Context, userID uint) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&teacher).Error; err != nil {
		return models.Teacher{}, err
	}

	return teacher, nil
}
