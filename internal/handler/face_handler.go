package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/facematch"
	"github.com/noah-isme/presensi-api/internal/observability"
	"github.com/noah-isme/presensi-api/internal/service"
	"github.com/noah-isme/presensi-api/internal/utils"
)

// FaceHandler wires biometric enrollment and marking routes.
type FaceHandler struct {
	faces  service.FaceService
	logger zerolog.Logger
}

// NewFaceHandler constructs the handler.
func NewFaceHandler(faces service.FaceService, logger zerolog.Logger) *FaceHandler {
	return &FaceHandler{
		faces:  faces,
		logger: logger.With().Str("component", "face_handler").Logger(),
	}
}

// RegisterEnroll attaches the enrollment endpoint (teacher/admin only).
func (h *FaceHandler) RegisterEnroll(router fiber.Router) {
	router.Post("/enroll", h.enroll)
}

// RegisterMark attaches the kiosk marking endpoint.
func (h *FaceHandler) RegisterMark(router fiber.Router) {
	router.Post("/mark", h.mark)
}

func (h *FaceHandler) enroll(c *fiber.Ctx) error {
	var payload dto.FaceEnrollRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.faces.Enroll(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "face profile enrolled", response)
}

func (h *FaceHandler) mark(c *fiber.Ctx) error {
	var payload dto.FaceMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.faces.MarkByFace(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	observability.FaceIdentifications().WithLabelValues("matched").Inc()
	observability.AttendanceMarks().WithLabelValues(response.Attendance.MarkedBy).Inc()

	return utils.SendSuccess(c, "attendance marked", response)
}

func (h *FaceHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, facematch.ErrNoFacesFound):
		observability.FaceIdentifications().WithLabelValues("no_face").Inc()
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "no face found in the submitted image")
	case errors.Is(err, facematch.ErrNoMatch):
		observability.FaceIdentifications().WithLabelValues("no_match").Inc()
		return utils.SendError(c, fiber.StatusNotFound, "no matching student")
	case errors.Is(err, service.ErrNotAnImage):
		return utils.SendError(c, fiber.StatusBadRequest, "submitted data is not an image")
	case errors.Is(err, service.ErrNoActiveSession):
		return utils.SendError(c, fiber.StatusConflict, "no active session for the student's class")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
