package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

// ReportService aggregates attendance records into reports.
type ReportService interface {
	Report(ctx context.Context, query dto.ReportQuery) (dto.ReportResponse, error)
}

type reportService struct {
	attendance repository.AttendanceRepository
	logger     zerolog.Logger
}

// NewReportService constructs a ReportService instance.
func NewReportService(attendance repository.AttendanceRepository, logger zerolog.Logger) ReportService {
	return &reportService{
		attendance: attendance,
		logger:     logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *reportService) Report(ctx context.Context, query dto.ReportQuery) (dto.ReportResponse, error) {
	records, err := s.attendance.ListForReport(ctx, repository.ReportFilter{
		StudentID: query.StudentID,
		TeacherID: query.TeacherID,
		Standard:  query.Standard,
		Division:  query.Division,
		DateFrom:  query.DateFrom,
		DateTo:    query.DateTo,
	})
	if err != nil {
		return dto.ReportResponse{}, err
	}

	response := dto.ReportResponse{Rows: make([]dto.ReportRow, 0, len(records))}
	for _, record := range records {
		class := record.Session.Timetable.Class
		response.Rows = append(response.Rows, dto.ReportRow{
			StudentName: record.Student.User.Name,
			RollNo:      record.Student.RollNo,
			ClassName:   class.Standard + "-" + class.Division,
			Subject:     record.Session.Timetable.Subject.Name,
			Date:        record.Session.Date,
			Status:      record.Status,
			MarkedAt:    record.MarkedAt,
			MarkedBy:    record.MarkedBy,
		})

		response.Summary.Total++
		switch record.Status {
		case models.AttendanceStatusPresent:
			response.Summary.Present++
		case models.AttendanceStatusLate:
			response.Summary.Late++
		case models.AttendanceStatusAbsent:
			response.Summary.Absent++
		}
	}

	// Late still counts as attended for the percentage.
	if response.Summary.Total > 0 {
		attended := response.Summary.Present + response.Summary.Late
		response.Summary.Percentage = float64(attended) / float64(response.Summary.Total) * 100
	}

	return response, nil
}
