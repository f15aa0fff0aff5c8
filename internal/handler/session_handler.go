package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/observability"
	"github.com/noah-isme/presensi-api/internal/repository"
	"github.com/noah-isme/presensi-api/internal/service"
	"github.com/noah-isme/presensi-api/internal/utils"
)

// SessionHandler wires the teacher's session lifecycle and proof issuing routes.
type SessionHandler struct {
	sessions service.SessionService
	proofs   service.ProofService
	teachers repository.TeacherRepository
	logger   zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions service.SessionService, proofs service.ProofService, teachers repository.TeacherRepository, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		proofs:   proofs,
		teachers: teachers,
		logger:   logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register attaches session endpoints to the router group.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.listToday)
	router.Delete("/:id", h.deactivate)
	router.Get("/:id/roster", h.roster)
	router.Post("/:id/qr", h.issueQR)
	router.Post("/:id/code", h.issueCode)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	var payload dto.SessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.sessions.Create(c.Context(), teacher.ID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", session)
}

func (h *SessionHandler) listToday(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	sessions, err := h.sessions.ForTeacher(c.Context(), teacher.ID, date)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sessions retrieved", sessions)
}

func (h *SessionHandler) deactivate(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.sessions.Deactivate(c.Context(), teacher.ID, id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session deactivated", fiber.Map{"id": id})
}

func (h *SessionHandler) roster(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.sessions.Roster(c.Context(), teacher.ID, id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roster retrieved", roster)
}

func (h *SessionHandler) issueQR(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	issued, err := h.proofs.IssueQR(c.Context(), teacher.ID, id)
	if err != nil {
		return h.handleError(c, err)
	}

	observability.ProofsIssued().WithLabelValues("qr").Inc()

	return utils.SendSuccess(c, "qr proof issued", issued)
}

func (h *SessionHandler) issueCode(c *fiber.Ctx) error {
	teacher, err := teacherFromContext(c.Context(), c, h.teachers)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	issued, err := h.proofs.IssueManualCode(c.Context(), teacher.ID, id)
	if err != nil {
		return h.handleError(c, err)
	}

	observability.ProofsIssued().WithLabelValues("code").Inc()

	return utils.SendSuccess(c, "manual code issued", issued)
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrSlotNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "timetable slot not found")
	case errors.Is(err, service.ErrNotSessionOwner):
		return utils.SendError(c, fiber.StatusForbidden, "session belongs to another teacher")
	case errors.Is(err, service.ErrSessionInactive):
		return utils.SendError(c, fiber.StatusConflict, "session is not active")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
