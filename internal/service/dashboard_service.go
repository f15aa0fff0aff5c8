package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

// DashboardService produces the student's attendance overview.
type DashboardService interface {
	StudentDashboard(ctx context.Context, userID uint) (dto.StudentDashboardResponse, error)
}

type dashboardService struct {
	students   repository.StudentRepository
	sessions   repository.SessionRepository
	attendance repository.AttendanceRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewDashboardService builds the dashboard aggregator. The cache client may
// be nil; every call then recomputes.
func NewDashboardService(
	students repository.StudentRepository,
	sessions repository.SessionRepository,
	attendance repository.AttendanceRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		students:   students,
		sessions:   sessions,
		attendance: attendance,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "dashboard_service").Logger(),
		now:        time.Now,
	}
}

func (s *dashboardService) StudentDashboard(ctx context.Context, userID uint) (dto.StudentDashboardResponse, error) {
	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentDashboardResponse{}, ErrStudentNotFound
		}
		return dto.StudentDashboardResponse{}, err
	}

	cacheKey := fmt.Sprintf("dashboard:student:%d", student.ID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", student.ID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	response, err := s.buildResponse(ctx, student)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *dashboardService) buildResponse(ctx context.Context, student models.Student) (dto.StudentDashboardResponse, error) {
	now := s.now()

	sessions, err := s.sessions.ActiveForClass(ctx, student.Standard, student.Division, now)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	weekAgo := now.AddDate(0, 0, -7)
	records, err := s.attendance.ListByStudentBetween(ctx, student.ID, weekAgo, now)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	statusBySession := make(map[uint]models.Attendance, len(records))
	for _, record := range records {
		statusBySession[record.SessionID] = record
	}

	response := dto.StudentDashboardResponse{
		Sessions: make([]dto.StudentSessionStatus, 0, len(sessions)),
	}

	for _, session := range sessions {
		entry := dto.StudentSessionStatus{
			SessionResponse:  dto.NewSessionResponse(session),
			AttendanceStatus: models.AttendanceStatusAbsent,
		}
		if record, marked := statusBySession[session.ID]; marked {
			entry.AttendanceStatus = record.Status
			markedAt := record.MarkedAt
			entry.MarkedAt = &markedAt
			if attended(record.Status) {
				response.Stats.PresentToday++
			}
		}
		response.Stats.TotalToday++
		response.Sessions = append(response.Sessions, entry)
	}

	for _, record := range records {
		response.Stats.WeeklyTotal++
		if attended(record.Status) {
			response.Stats.WeeklyPresent++
		}
	}

	return response, nil
}

func attended(status string) bool {
	return status == models.AttendanceStatusPresent || status == models.AttendanceStatusLate
}
