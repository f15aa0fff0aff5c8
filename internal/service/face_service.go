package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/facematch"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

// Face pipeline failures surfaced to handlers.
var (
	ErrNotAnImage      = errors.New("submitted data is not an image")
	ErrNoActiveSession = errors.New("no active session for the student's class")
)

// ImageUploader persists enrollment images and returns their public URLs.
// pkg/cloudinary satisfies it; nil disables image retention.
type ImageUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SessionResolver finds the sessions a student can currently be marked into.
type SessionResolver interface {
	ActiveForStudent(ctx context.Context, standard, division string, now time.Time) ([]models.AttendanceSession, error)
}

// Marker is the subset of AttendanceService the face pipeline writes through.
type Marker interface {
	Mark(ctx context.Context, cmd MarkCommand) (models.Attendance, error)
}

// FaceService enrolls biometric profiles and marks attendance from a probe
// image.
type FaceService interface {
	Enroll(ctx context.Context, payload dto.FaceEnrollRequest) (dto.FaceEnrollResponse, error)
	// MarkByFace identifies the student in the probe image and marks them
	// present in the earliest active session of their class.
	MarkByFace(ctx context.Context, payload dto.FaceMarkRequest) (dto.FaceMarkResponse, error)
}

type faceService struct {
	students   repository.StudentRepository
	engine     *facematch.Engine
	sessions   SessionResolver
	marker     Marker
	uploader   ImageUploader
	validator  *validator.Validate
	maxSamples int
	logger     zerolog.Logger
	now        func() time.Time
}

// NewFaceService constructs a FaceService instance.
func NewFaceService(
	students repository.StudentRepository,
	engine *facematch.Engine,
	sessions SessionResolver,
	marker Marker,
	uploader ImageUploader,
	validate *validator.Validate,
	maxSamples int,
	logger zerolog.Logger,
) FaceService {
	if maxSamples <= 0 {
		maxSamples = 5
	}
	return &faceService{
		students:   students,
		engine:     engine,
		sessions:   sessions,
		marker:     marker,
		uploader:   uploader,
		validator:  validate,
		maxSamples: maxSamples,
		logger:     logger.With().Str("component", "face_service").Logger(),
		now:        time.Now,
	}
}

func (s *faceService) Enroll(ctx context.Context, payload dto.FaceEnrollRequest) (dto.FaceEnrollResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FaceEnrollResponse{}, err
	}

	student, err := s.students.GetByID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FaceEnrollResponse{}, ErrStudentNotFound
		}
		return dto.FaceEnrollResponse{}, err
	}

	samples := payload.Images
	if len(samples) > s.maxSamples {
		samples = samples[:s.maxSamples]
	}

	images, err := decodeImages(samples)
	if err != nil {
		return dto.FaceEnrollResponse{}, err
	}

	profile, err := s.engine.BuildProfile(ctx, images)
	if err != nil {
		return dto.FaceEnrollResponse{}, err
	}

	urls := s.uploadImages(ctx, student.ID, images)

	enrolledAt := s.now()
	if err := s.students.SaveFaceProfile(ctx, student.ID, profile, urls, enrolledAt); err != nil {
		return dto.FaceEnrollResponse{}, err
	}

	s.logger.Info().Uint("student_id", student.ID).Int("samples", len(images)).Msg("face profile enrolled")

	return dto.FaceEnrollResponse{
		StudentID:  student.ID,
		Samples:    len(images),
		ImageURLs:  urls,
		EnrolledAt: enrolledAt,
	}, nil
}

func (s *faceService) MarkByFace(ctx context.Context, payload dto.FaceMarkRequest) (dto.FaceMarkResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FaceMarkResponse{}, err
	}

	probe, err := decodeImage(payload.Image)
	if err != nil {
		return dto.FaceMarkResponse{}, err
	}

	enrolled, err := s.students.ListWithFaceProfiles(ctx)
	if err != nil {
		return dto.FaceMarkResponse{}, err
	}

	candidates := make([]facematch.Candidate, 0, len(enrolled))
	for _, student := range enrolled {
		candidates = append(candidates, facematch.Candidate{
			StudentID: student.ID,
			Encoding:  student.FaceEncoding,
		})
	}

	match, err := s.engine.Identify(ctx, probe, candidates)
	if err != nil {
		return dto.FaceMarkResponse{}, err
	}

	student, err := s.students.GetByID(ctx, match.StudentID)
	if err != nil {
		return dto.FaceMarkResponse{}, err
	}

	sessions, err := s.sessions.ActiveForStudent(ctx, student.Standard, student.Division, s.now())
	if err != nil {
		return dto.FaceMarkResponse{}, err
	}
	if len(sessions) == 0 {
		return dto.FaceMarkResponse{}, ErrNoActiveSession
	}

	// ActiveForStudent orders by start time; the earliest open session wins.
	session := sessions[0]
	confidence := match.Similarity

	record, err := s.marker.Mark(ctx, MarkCommand{
		StudentID:       student.ID,
		Session:         session,
		Status:          models.AttendanceStatusPresent,
		MarkedBy:        models.MarkedByFace,
		ConfidenceScore: &confidence,
		SubjectLabel:    session.Timetable.Subject.Name,
	})
	if err != nil {
		var dup *AlreadyMarkedError
		if errors.As(err, &dup) {
			response := dto.NewAttendanceResponse(dup.Existing)
			response.AlreadyMarked = true
			return dto.FaceMarkResponse{
				StudentID:  student.ID,
				Confidence: confidence,
				Attendance: response,
			}, nil
		}
		return dto.FaceMarkResponse{}, err
	}

	return dto.FaceMarkResponse{
		StudentID:  student.ID,
		Confidence: confidence,
		Attendance: dto.NewAttendanceResponse(record),
	}, nil
}

// uploadImages stores enrollment images for audit. Upload failures do not
// abort enrollment.
func (s *faceService) uploadImages(ctx context.Context, studentID uint, images [][]byte) []string {
	if s.uploader == nil {
		return nil
	}

	urls := make([]string, 0, len(images))
	for i, image := range images {
		name := fmt.Sprintf("student-%d-sample-%d", studentID, i+1)
		url, err := s.uploader.Upload(ctx, name, bytes.NewReader(image))
		if err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("enrollment image upload failed")
			continue
		}
		urls = append(urls, url)
	}

	return urls
}

// decodeImages skips samples that are not decodable images; extraction later
// skips the ones without a face. Only a batch with no usable image at all
// fails.
func decodeImages(encoded []string) ([][]byte, error) {
	images := make([][]byte, 0, len(encoded))
	for _, item := range encoded {
		image, err := decodeImage(item)
		if err != nil {
			continue
		}
		images = append(images, image)
	}

	if len(images) == 0 {
		return nil, ErrNotAnImage
	}

	return images, nil
}

// decodeImage accepts raw base64 or a data URL and verifies the payload is an
// image before it reaches the extractor.
func decodeImage(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ","); idx != -1 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrNotAnImage
	}

	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return nil, ErrNotAnImage
	}

	return data, nil
}
