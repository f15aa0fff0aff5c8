package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/service"
	"github.com/noah-isme/presensi-api/internal/utils"
)

// ReportHandler wires attendance report and dashboard routes.
type ReportHandler struct {
	reports   service.ReportService
	dashboard service.DashboardService
	logger    zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports service.ReportService, dashboard service.DashboardService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		dashboard: dashboard,
		logger:    logger.With().Str("component", "report_handler").Logger(),
	}
}

// RegisterReports attaches the report endpoint.
func (h *ReportHandler) RegisterReports(router fiber.Router) {
	router.Get("/attendance", h.attendanceReport)
}

// RegisterDashboard attaches the student dashboard endpoint.
func (h *ReportHandler) RegisterDashboard(router fiber.Router) {
	router.Get("/dashboard", h.studentDashboard)
}

func (h *ReportHandler) attendanceReport(c *fiber.Ctx) error {
	query := dto.ReportQuery{}

	if raw := c.Query("student_id"); raw != "" {
		id, err := parseQueryUint(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
		}
		query.StudentID = &id
	}
	if raw := c.Query("teacher_id"); raw != "" {
		id, err := parseQueryUint(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid teacher_id")
		}
		query.TeacherID = &id
	}
	if raw := c.Query("standard"); raw != "" {
		query.Standard = &raw
	}
	if raw := c.Query("division"); raw != "" {
		query.Division = &raw
	}
	if raw := c.Query("date_from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid date_from, expected YYYY-MM-DD")
		}
		query.DateFrom = &parsed
	}
	if raw := c.Query("date_to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid date_to, expected YYYY-MM-DD")
		}
		query.DateTo = &parsed
	}

	report, err := h.reports.Report(c.Context(), query)
	if err != nil {
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "report generated", report)
}

func (h *ReportHandler) studentDashboard(c *fiber.Ctx) error {
	response, err := h.dashboard.StudentDashboard(c.Context(), userIDFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "student profile not found")
		}
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", response)
}
