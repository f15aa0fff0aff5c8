package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/observability"
	"github.com/noah-isme/presensi-api/internal/proof"
	"github.com/noah-isme/presensi-api/internal/repository"
	"github.com/noah-isme/presensi-api/internal/service"
	"github.com/noah-isme/presensi-api/internal/utils"
)

// AttendanceHandler wires marking, correction and listing routes.
type AttendanceHandler struct {
	attendance service.AttendanceService
	teachers   repository.TeacherRepository
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance service.AttendanceService, teachers repository.TeacherRepository, validate *validator.Validate, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		attendance: attendance,
		teachers:   teachers,
		validator:  validate,
		logger:     logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// RegisterStudent attaches the self-marking endpoints.
func (h *AttendanceHandler) RegisterStudent(router fiber.Router) {
	router.Post("/qr", h.markByQR)
	router.Post("/code", h.markByCode)
}

// RegisterTeacher attaches correction and listing endpoints.
func (h *AttendanceHandler) RegisterTeacher(router fiber.Router) {
	router.Post("/bulk", h.bulkMark)
	router.Put("/sessions/:id", h.update)
	router.Get("/sessions/:id", h.list)
}

func (h *AttendanceHandler) markByQR(c *fiber.Ctx) error {
	var payload dto.MarkQRRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.attendance.MarkByQR(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleMarkError(c, err)
	}

	observability.AttendanceMarks().WithLabelValues(response.MarkedBy).Inc()

	return utils.SendSuccess(c, "attendance marked", response)
}

func (h *AttendanceHandler) markByCode(c *fiber.Ctx) error {
	var payload dto.MarkCodeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.attendance.MarkByCode(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleMarkError(c, err)
	}

	observability.AttendanceMarks().WithLabelValues(response.MarkedBy).Inc()

	return utils.SendSuccess(c, "attendance marked", response)
}

func (h *AttendanceHandler) bulkMark(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	var payload dto.BulkMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.attendance.BulkMark(c.Context(), teacher.ID, payload)
	if err != nil {
		return h.handleMarkError(c, err)
	}

	return utils.SendSuccess(c, "attendance recorded", response)
}

func (h *AttendanceHandler) update(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UpdateAttendanceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.attendance.Update(c.Context(), teacher.ID, sessionID, payload)
	if err != nil {
		return h.handleMarkError(c, err)
	}

	return utils.SendSuccess(c, "attendance updated", response)
}

func (h *AttendanceHandler) list(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.attendance.ListBySession(c.Context(), teacher.ID, sessionID)
	if err != nil {
		return h.handleMarkError(c, err)
	}

	return utils.SendSuccess(c, "attendance retrieved", records)
}

func (h *AttendanceHandler) handleMarkError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, proof.ErrExpired):
		observability.ProofFailures().WithLabelValues("expired").Inc()
		return utils.SendError(c, fiber.StatusUnauthorized, "proof expired")
	case errors.Is(err, proof.ErrInvalidSignature):
		observability.ProofFailures().WithLabelValues("invalid").Inc()
		return utils.SendError(c, fiber.StatusUnauthorized, "proof invalid")
	case errors.Is(err, service.ErrProofSuperseded):
		observability.ProofFailures().WithLabelValues("superseded").Inc()
		return utils.SendError(c, fiber.StatusConflict, "proof superseded by a newer one")
	case errors.Is(err, service.ErrCodeNotFound):
		observability.ProofFailures().WithLabelValues("code_not_found").Inc()
		return utils.SendError(c, fiber.StatusNotFound, "invalid or expired code")
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrSessionInactive):
		return utils.SendError(c, fiber.StatusConflict, "session is not active")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student profile not found")
	case errors.Is(err, service.ErrNotSessionOwner):
		return utils.SendError(c, fiber.StatusForbidden, "session belongs to another teacher")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
