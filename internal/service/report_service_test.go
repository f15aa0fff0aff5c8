package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

func TestReportServiceSummary(t *testing.T) {
	db := setupTestDB(t)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)

	statuses := []string{
		models.AttendanceStatusPresent,
		models.AttendanceStatusPresent,
		models.AttendanceStatusLate,
		models.AttendanceStatusAbsent,
	}
	for i, status := range statuses {
		student := seedStudent(t, db, string(rune('A'+i)))
		record := models.Attendance{
			StudentID: student.ID,
			SessionID: session.ID,
			Status:    status,
			MarkedAt:  date.Add(10 * time.Hour),
			MarkedBy:  models.MarkedByTeacher,
		}
		require.NoError(t, db.Create(&record).Error)
	}

	svc := NewReportService(repository.NewAttendanceRepository(db), testLogger())

	report, err := svc.Report(context.Background(), dto.ReportQuery{TeacherID: &slot.TeacherID})
	require.NoError(t, err)
	require.Len(t, report.Rows, 4)
	require.Equal(t, 4, report.Summary.Total)
	require.Equal(t, 2, report.Summary.Present)
	require.Equal(t, 1, report.Summary.Late)
	require.Equal(t, 1, report.Summary.Absent)
	require.InDelta(t, 75.0, report.Summary.Percentage, 0.01)
	require.Equal(t, "10-A", report.Rows[0].ClassName)
}

func TestReportServiceStudentFilter(t *testing.T) {
	db := setupTestDB(t)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)
	first := seedStudent(t, db, "01")
	second := seedStudent(t, db, "02")

	for _, student := range []models.Student{first, second} {
		record := models.Attendance{
			StudentID: student.ID,
			SessionID: session.ID,
			Status:    models.AttendanceStatusPresent,
			MarkedAt:  date.Add(10 * time.Hour),
			MarkedBy:  models.MarkedByQR,
		}
		require.NoError(t, db.Create(&record).Error)
	}

	svc := NewReportService(repository.NewAttendanceRepository(db), testLogger())

	report, err := svc.Report(context.Background(), dto.ReportQuery{StudentID: &first.ID})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	require.Equal(t, first.RollNo, report.Rows[0].RollNo)
}

func TestReportServiceEmpty(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReportService(repository.NewAttendanceRepository(db), testLogger())

	report, err := svc.Report(context.Background(), dto.ReportQuery{})
	require.NoError(t, err)
	require.Empty(t, report.Rows)
	require.Zero(t, report.Summary.Percentage)
}
