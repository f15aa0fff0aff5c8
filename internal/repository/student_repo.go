package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
)

// StudentRepository provides access to student records and face profiles.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByUserID(ctx context.Context, userID uint) (models.Student, error)
	ListByClass(ctx context.Context, standard, division string) ([]models.Student, error)
	// ListWithFaceProfiles returns every student with a non-empty encoding.
	ListWithFaceProfiles(ctx context.Context) ([]models.Student, error)
	// SaveFaceProfile replaces the stored encoding wholesale; re-enrollment
	// recomputes, it never updates incrementally.
	SaveFaceProfile(ctx context.Context, studentID uint, encoding []float64, imageURLs []string, enrolledAt time.Time) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Student{}).Preload("User")
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.baseQuery(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID uint) (models.Student, error) {
	var student models.Student
	if err := r.baseQuery(ctx).Where("user_id = ?", userID).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) ListByClass(ctx context.Context, standard, division string) ([]models.Student, error) {
	var students []models.Student
	err := r.baseQuery(ctx).
		Where("standard = ?", standard).
		Where("division = ?", division).
		Order("roll_no").
		Find(&students).Error
	if err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) ListWithFaceProfiles(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := r.baseQuery(ctx).
		Where("face_encoding IS NOT NULL").
		Find(&students).Error
	if err != nil {
		return nil, err
	}

	// Filter out empty vectors left behind by aborted enrollments.
	filtered := students[:0]
	for _, student := range students {
		if student.HasFaceProfile() {
			filtered = append(filtered, student)
		}
	}

	return filtered, nil
}

func (r *studentRepository) SaveFaceProfile(ctx context.Context, studentID uint, encoding []float64, imageURLs []string, enrolledAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id = ?", studentID).
		Updates(map[string]interface{}{
			"face_encoding":    datatypes.NewJSONSlice(encoding),
			"face_image_urls":  datatypes.NewJSONSlice(imageURLs),
			"face_enrolled_at": enrolledAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
