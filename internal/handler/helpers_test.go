package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/config"
	"github.com/noah-isme/presensi-api/internal/facematch"
	"github.com/noah-isme/presensi-api/internal/handler"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/proof"
	"github.com/noah-isme/presensi-api/internal/repository"
	"github.com/noah-isme/presensi-api/internal/router"
	"github.com/noah-isme/presensi-api/internal/service"
)

// stubExtractor resolves feature vectors from the byte following the PNG
// magic, so tests can steer identification without a face service.
type stubExtractor struct {
	vectors map[byte][][]float64
}

func (s *stubExtractor) ExtractFeatures(_ context.Context, image []byte) ([][]float64, error) {
	if len(image) <= len(pngMagic) {
		return nil, nil
	}
	return s.vectors[image[len(pngMagic)]], nil
}

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type testApp struct {
	app     *fiber.App
	db      *gorm.DB
	teacher models.Teacher
	student models.Student
	slot    models.Timetable
}

func setupApp(t *testing.T) *testApp {
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

	teacherUser := models.User{Name: "Teacher One", Email: "t1@example.com", Role: models.RoleTeacher, IsActive: true}
	require.NoError(t, db.Create(&teacherUser).Error)
	teacher := models.Teacher{UserID: teacherUser.ID, EmployeeID: "T100"}
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

	studentUser := models.User{Name: "Student One", Email: "s1@example.com", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, db.Create(&studentUser).Error)
	student := models.Student{UserID: studentUser.ID, RollNo: "17", Standard: "10", Division: "A"}
	require.NoError(t, db.Create(&student).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	codec := proof.NewTokenCodec("handler-test-secret", 5*time.Minute)
	extractor := &stubExtractor{vectors: map[byte][][]float64{
		'a': {{1, 0}},
		'b': {{0.9, 0.1}},
	}}
	engine := facematch.NewEngine(extractor, 0.5, logger)

	sessionService := service.NewSessionService(sessionRepo, timetableRepo, studentRepo, attendanceRepo, validate, logger)
	proofService := service.NewProofService(sessionRepo, codec, 15*time.Minute, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, sessionRepo, studentRepo, proofService, nil, logger)
	faceService := service.NewFaceService(studentRepo, engine, sessionService, attendanceService, nil, validate, 5, logger)
	reportService := service.NewReportService(attendanceRepo, logger)
	dashboardService := service.NewDashboardService(studentRepo, sessionRepo, attendanceRepo, nil, time.Minute, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: "secret"}, router.Dependencies{
		SessionHandler:    handler.NewSessionHandler(sessionService, proofService, teacherRepo, logger),
		AttendanceHandler: handler.NewAttendanceHandler(attendanceService, teacherRepo, validate, logger),
		FaceHandler:       handler.NewFaceHandler(faceService, logger),
		ReportHandler:     handler.NewReportHandler(reportService, dashboardService, logger),
		JWTMiddleware:     headerAuth(),
	})

	return &testApp{app: app, db: db, teacher: teacher, student: student, slot: slot}
}

// headerAuth replaces JWT verification with test headers so one app can serve
// both roles.
func headerAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Get("X-Test-User"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err == nil {
				c.Locals("user_id", uint(id))
			}
		}
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func (f *testApp) request(t *testing.T, method, target string, payload interface{}, userID uint, role string) *http.Response {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(encoded)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (f *testApp) asTeacher(t *testing.T, method, target string, payload interface{}) *http.Response {
	return f.request(t, method, target, payload, f.teacher.UserID, models.RoleTeacher)
}

func (f *testApp) asStudent(t *testing.T, method, target string, payload interface{}) *http.Response {
	return f.request(t, method, target, payload, f.student.UserID, models.RoleStudent)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// seedActiveSession writes a session directly so marking tests do not depend
// on the create endpoint.
func (f *testApp) seedActiveSession(t *testing.T) models.AttendanceSession {
	t.Helper()

	now := time.Now()
	session := models.AttendanceSession{
		TimetableID: f.slot.ID,
		Date:        time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		StartTime:   now.Add(-10 * time.Minute),
		IsActive:    true,
		Method:      models.CaptureMethodManual,
	}
	require.NoError(t, f.db.Create(&session).Error)
	return session
}
