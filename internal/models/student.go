package models

import (
	"time"

	"gorm.io/datatypes"
)

// Student represents a learner enrolled in a class division.
type Student struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	RollNo      string `gorm:"size:20;not null;uniqueIndex:idx_roll_class" json:"roll_no"`
	Standard    string `gorm:"size:10;not null;uniqueIndex:idx_roll_class" json:"standard"`
	Division    string `gorm:"size:10;not null;uniqueIndex:idx_roll_class" json:"division"`
	Phone       string `gorm:"size:15" json:"phone,omitempty"`
	ParentPhone string `gorm:"size:15" json:"parent_phone,omitempty"`

	// FaceEncoding is the mean feature vector over the student's enrollment
	// samples. Empty until the student enrolls.
	FaceEncoding datatypes.JSONSlice[float64] `json:"-"`
	// FaceImageURLs keeps the uploaded enrollment image locations.
	FaceImageURLs  datatypes.JSONSlice[string] `json:"face_image_urls,omitempty"`
	FaceEnrolledAt *time.Time                  `json:"face_enrolled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// HasFaceProfile reports whether the student can be identified biometrically.
func (s Student) HasFaceProfile() bool {
	return len(s.FaceEncoding) > 0
}
