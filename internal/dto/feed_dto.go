package dto

import "time"

// FeedEvent is one marking event streamed to the teacher's live view.
type FeedEvent struct {
	SessionID   uint      `json:"session_id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name"`
	RollNo      string    `json:"roll_no"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	MarkedAt    time.Time `json:"marked_at"`
}
