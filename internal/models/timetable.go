package models

import "time"

// Subject is a taught discipline referenced by timetable slots.
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Code      string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SchoolClass identifies one standard/division pairing for an academic year.
type SchoolClass struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Standard     string    `gorm:"size:10;not null;uniqueIndex:idx_class_year" json:"standard"`
	Division     string    `gorm:"size:10;not null;uniqueIndex:idx_class_year" json:"division"`
	AcademicYear string    `gorm:"size:10;not null;uniqueIndex:idx_class_year" json:"academic_year"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Timetable is one recurring slot: a subject taught by a teacher to a class.
type Timetable struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	ClassID    uint        `gorm:"not null" json:"class_id"`
	SubjectID  uint        `gorm:"not null" json:"subject_id"`
	TeacherID  uint        `gorm:"not null" json:"teacher_id"`
	DayOfWeek  int         `gorm:"not null" json:"day_of_week"` // 0=Monday .. 6=Sunday
	StartTime  string      `gorm:"size:5;not null" json:"start_time"`
	EndTime    string      `gorm:"size:5;not null" json:"end_time"`
	RoomNumber string      `gorm:"size:20" json:"room_number,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Class      SchoolClass `gorm:"foreignKey:ClassID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"class"`
	Subject    Subject     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subject"`
	Teacher    Teacher     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
}
