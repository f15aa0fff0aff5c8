package dto

import "time"

// ReportQuery scopes an attendance report.
type ReportQuery struct {
	StudentID *uint      `query:"student_id"`
	TeacherID *uint      `query:"teacher_id"`
	Standard  *string    `query:"standard"`
	Division  *string    `query:"division"`
	DateFrom  *time.Time `query:"date_from"`
	DateTo    *time.Time `query:"date_to"`
}

// ReportRow is one line of an attendance report.
type ReportRow struct {
	StudentName string    `json:"student_name"`
	RollNo      string    `json:"roll_no"`
	ClassName   string    `json:"class_name"`
	Subject     string    `json:"subject"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	MarkedAt    time.Time `json:"marked_at"`
	MarkedBy    string    `json:"marked_by"`
}

// ReportSummary aggregates a report's rows.
type ReportSummary struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Late       int     `json:"late"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"attendance_percentage"`
}

// ReportResponse is the full report payload.
type ReportResponse struct {
	Rows    []ReportRow   `json:"rows"`
	Summary ReportSummary `json:"summary"`
}

// StudentSessionStatus is one of today's sessions annotated with the
// student's own status.
type StudentSessionStatus struct {
	SessionResponse
	AttendanceStatus string     `json:"attendance_status"`
	MarkedAt         *time.Time `json:"marked_at"`
}

// DashboardStats are the headline numbers on the student dashboard.
type DashboardStats struct {
	PresentToday  int `json:"present_today"`
	TotalToday    int `json:"total_today"`
	WeeklyPresent int `json:"weekly_present"`
	WeeklyTotal   int `json:"weekly_total"`
}

// StudentDashboardResponse combines today's sessions with weekly stats.
type StudentDashboardResponse struct {
	Sessions []StudentSessionStatus `json:"sessions"`
	Stats    DashboardStats         `json:"stats"`
}
