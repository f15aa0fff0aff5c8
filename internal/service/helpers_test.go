package service

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.Teacher{},
		&models.Subject{},
		&models.SchoolClass{},
		&models.Timetable{},
		&models.AttendanceSession{},
		&models.Attendance{},
	))
	return db
}

func seedSlot(t *testing.T, db *gorm.DB) models.Timetable {
	t.Helper()

	user := models.User{Name: "Teacher One", Email: "t1@example.com", Role: models.RoleTeacher, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	teacher := models.Teacher{UserID: user.ID, EmployeeID: "T100"}
	require.NoError(t, db.Create(&teacher).Error)

	class := models.SchoolClass{Standard: "10", Division: "A", AcademicYear: "2026"}
	require.NoError(t, db.Create(&class).Error)
	subject := models.Subject{Name: "Maths", Code: "MATH"}
	require.NoError(t, db.Create(&subject).Error)

	slot := models.Timetable{
		ClassID:   class.ID,
		SubjectID: subject.ID,
		TeacherID: teacher.ID,
		DayOfWeek: 0,
		StartTime: "10:00",
		EndTime:   "11:00",
	}
	require.NoError(t, db.Create(&slot).Error)
	return slot
}

func seedStudent(t *testing.T, db *gorm.DB, roll string) models.Student {
	t.Helper()
	user := models.User{Name: "Student " + roll, Email: roll + "@example.com", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	student := models.Student{UserID: user.ID, RollNo: roll, Standard: "10", Division: "A"}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func seedSession(t *testing.T, db *gorm.DB, slot models.Timetable, date time.Time) models.AttendanceSession {
	t.Helper()
	session := models.AttendanceSession{
		TimetableID: slot.ID,
		Date:        date,
		StartTime:   date.Add(10 * time.Hour),
		IsActive:    true,
		Method:      models.CaptureMethodManual,
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}
