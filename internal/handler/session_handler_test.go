package handler_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/models"
)

func TestSessionHandlerCreateAndList(t *testing.T) {
	f := setupApp(t)

	resp := f.asTeacher(t, "POST", "/api/v1/sessions", dto.SessionCreateRequest{TimetableID: f.slot.ID})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool                `json:"success"`
		Data    dto.SessionResponse `json:"data"`
	}
	decodeBody(t, resp, &created)
	require.True(t, created.Success)
	require.Equal(t, "Maths", created.Data.Subject)
	require.Equal(t, "10-A", created.Data.ClassName)
	require.True(t, created.Data.IsActive)

	resp = f.asTeacher(t, "GET", "/api/v1/sessions", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Data []dto.TeacherSessionResponse `json:"data"`
	}
	decodeBody(t, resp, &listed)
	require.Len(t, listed.Data, 1)
	require.Equal(t, created.Data.ID, listed.Data[0].ID)
	require.Equal(t, int64(1), listed.Data[0].TotalStudents)
}

func TestSessionHandlerRejectsStudentRole(t *testing.T) {
	f := setupApp(t)

	resp := f.asStudent(t, "POST", "/api/v1/sessions", dto.SessionCreateRequest{TimetableID: f.slot.ID})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSessionHandlerIssueProofs(t *testing.T) {
	f := setupApp(t)
	session := f.seedActiveSession(t)

	resp := f.asTeacher(t, "POST", "/api/v1/sessions/"+itoa(session.ID)+"/qr", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var qr struct {
		Data dto.QRProofResponse `json:"data"`
	}
	decodeBody(t, resp, &qr)
	require.Equal(t, session.ID, qr.Data.SessionID)
	require.NotEmpty(t, qr.Data.Token)
	require.NotEmpty(t, qr.Data.QRImage)
	require.Greater(t, qr.Data.ExpiresIn, 0)

	resp = f.asTeacher(t, "POST", "/api/v1/sessions/"+itoa(session.ID)+"/code", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var code struct {
		Data dto.ManualCodeResponse `json:"data"`
	}
	decodeBody(t, resp, &code)
	require.Len(t, code.Data.Code, 6)
}

func TestSessionHandlerDeactivateStopsIssuing(t *testing.T) {
	f := setupApp(t)
	session := f.seedActiveSession(t)

	resp := f.asTeacher(t, "DELETE", "/api/v1/sessions/"+itoa(session.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = f.asTeacher(t, "POST", "/api/v1/sessions/"+itoa(session.ID)+"/qr", nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSessionHandlerRosterDefaultsAbsent(t *testing.T) {
	f := setupApp(t)
	session := f.seedActiveSession(t)

	resp := f.asTeacher(t, "GET", "/api/v1/sessions/"+itoa(session.ID)+"/roster", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var roster struct {
		Data []dto.RosterEntry `json:"data"`
	}
	decodeBody(t, resp, &roster)
	require.Len(t, roster.Data, 1)
	require.Equal(t, f.student.ID, roster.Data[0].StudentID)
	require.Equal(t, models.AttendanceStatusAbsent, roster.Data[0].Status)
}

func TestSessionHandlerUnknownSession(t *testing.T) {
	f := setupApp(t)

	resp := f.asTeacher(t, "GET", "/api/v1/sessions/999/roster", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
