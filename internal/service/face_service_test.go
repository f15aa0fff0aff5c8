package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/facematch"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// stubExtractor keys the returned vectors on the byte following the PNG magic.
type stubExtractor struct {
	vectors map[byte][][]float64
}

func (s *stubExtractor) ExtractFeatures(_ context.Context, image []byte) ([][]float64, error) {
	if len(image) <= len(pngMagic) {
		return nil, nil
	}
	return s.vectors[image[len(pngMagic)]], nil
}

func sampleImage(tag byte) string {
	return base64.StdEncoding.EncodeToString(append(append([]byte{}, pngMagic...), tag))
}

type faceFixture struct {
	svc     FaceService
	session models.AttendanceSession
	student models.Student
}

func setupFaceFixture(t *testing.T, extractor facematch.Extractor) faceFixture {
	t.Helper()
	db := setupTestDB(t)
	slot := seedSlot(t, db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	session := seedSession(t, db, slot, date)
	student := seedStudent(t, db, "17")

	now := date.Add(10*time.Hour + 30*time.Minute)

	students := repository.NewStudentRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	sessionSvc := newSessionService(t, db, now)
	proofs := newProofService(t, sessionRepo, now)

	marker := NewAttendanceService(attendance, sessionRepo, students, proofs, nil, testLogger()).(*attendanceService)
	marker.now = func() time.Time { return now }

	engine := facematch.NewEngine(extractor, 0.5, testLogger())
	svc := NewFaceService(students, engine, sessionSvc, marker, nil, validator.New(), 5, testLogger()).(*faceService)
	svc.now = func() time.Time { return now }

	return faceFixture{svc: svc, session: session, student: student}
}

func TestFaceServiceEnrollAveragesSamples(t *testing.T) {
	extractor := &stubExtractor{vectors: map[byte][][]float64{
		1: {{1, 0}},
		2: {{0, 1}},
	}}
	f := setupFaceFixture(t, extractor)

	response, err := f.svc.Enroll(context.Background(), dto.FaceEnrollRequest{
		StudentID: f.student.ID,
		Images:    []string{sampleImage(1), sampleImage(2), sampleImage(9)}, // third yields no face
	})
	require.NoError(t, err)
	require.Equal(t, f.student.ID, response.StudentID)
	require.False(t, response.EnrolledAt.IsZero())
}

func TestFaceServiceEnrollNoUsableImages(t *testing.T) {
	f := setupFaceFixture(t, &stubExtractor{vectors: map[byte][][]float64{}})

	_, err := f.svc.Enroll(context.Background(), dto.FaceEnrollRequest{
		StudentID: f.student.ID,
		Images:    []string{sampleImage(1)},
	})
	require.ErrorIs(t, err, facematch.ErrNoFacesFound)
}

func TestFaceServiceEnrollSkipsUndecodableSamples(t *testing.T) {
	extractor := &stubExtractor{vectors: map[byte][][]float64{
		1: {{1, 0}},
	}}
	f := setupFaceFixture(t, extractor)

	response, err := f.svc.Enroll(context.Background(), dto.FaceEnrollRequest{
		StudentID: f.student.ID,
		Images:    []string{base64.StdEncoding.EncodeToString([]byte("just text")), sampleImage(1)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, response.Samples)
}

func TestFaceServiceEnrollRejectsNonImage(t *testing.T) {
	f := setupFaceFixture(t, &stubExtractor{vectors: map[byte][][]float64{}})

	_, err := f.svc.Enroll(context.Background(), dto.FaceEnrollRequest{
		StudentID: f.student.ID,
		Images:    []string{base64.StdEncoding.EncodeToString([]byte("just text"))},
	})
	require.ErrorIs(t, err, ErrNotAnImage)
}

func TestFaceServiceMarkByFace(t *testing.T) {
	extractor := &stubExtractor{vectors: map[byte][][]float64{
		1: {{1, 0}},
		2: {{0.9, 0.1}}, // probe, close to the enrolled profile
	}}
	f := setupFaceFixture(t, extractor)

	_, err := f.svc.Enroll(context.Background(), dto.FaceEnrollRequest{
		StudentID: f.student.ID,
		Images:    []string{sampleImage(1)},
	})
	require.NoError(t, err)

	response, err := f.svc.MarkByFace(context.Background(), dto.FaceMarkRequest{Image: sampleImage(2)})
	require.NoError(t, err)
	require.Equal(t, f.student.ID, response.StudentID)
	require.Greater(t, response.Confidence, 0.5)
	require.Equal(t, models.MarkedByFace, response.Attendance.MarkedBy)
	require.Equal(t, f.session.ID, response.Attendance.SessionID)
	require.NotNil(t, response.Attendance.ConfidenceScore)

	// Repeating the probe answers with the original record.
	repeat, err := f.svc.MarkByFace(context.Background(), dto.FaceMarkRequest{Image: sampleImage(2)})
	require.NoError(t, err)
	require.True(t, repeat.Attendance.AlreadyMarked)
	require.Equal(t, response.Attendance.ID, repeat.Attendance.ID)
}

func TestFaceServiceMarkByFaceNoMatch(t *testing.T) {
	extractor := &stubExtractor{vectors: map[byte][][]float64{
		1: {{1, 0}},
		2: {{-1, 0}}, // far from the enrolled profile
	}}
	f := setupFaceFixture(t, extractor)

	_, err := f.svc.Enroll(context.Background(), dto.FaceEnrollRequest{
		StudentID: f.student.ID,
		Images:    []string{sampleImage(1)},
	})
	require.NoError(t, err)

	_, err = f.svc.MarkByFace(context.Background(), dto.FaceMarkRequest{Image: sampleImage(2)})
	require.ErrorIs(t, err, facematch.ErrNoMatch)
}

func TestFaceServiceMarkByFaceNoActiveSession(t *testing.T) {
	extractor := &stubExtractor{vectors: map[byte][][]float64{
		1: {{1, 0}},
	}}
	f := setupFaceFixture(t, extractor)

	_, err := f.svc.Enroll(context.Background(), dto.FaceEnrollRequest{
		StudentID: f.student.ID,
		Images:    []string{sampleImage(1)},
	})
	require.NoError(t, err)

	svc := f.svc.(*faceService)
	svc.now = func() time.Time { return time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC) }

	_, err = f.svc.MarkByFace(context.Background(), dto.FaceMarkRequest{Image: sampleImage(1)})
	require.ErrorIs(t, err, ErrNoActiveSession)
}
