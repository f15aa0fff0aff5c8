package models

import "time"

// Teacher represents a staff member that owns timetable slots.
type Teacher struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	EmployeeID string    `gorm:"size:20;not null;uniqueIndex" json:"employee_id"`
	Department string    `gorm:"size:50" json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}
