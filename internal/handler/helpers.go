package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/presensi-api/internal/models"
	"github.com/noah-isme/presensi-api/internal/repository"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryUint(value string) (uint, error) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

// teacherFromContext maps the authenticated user to their teacher record.
func teacherFromContext(ctx context.Context, c *fiber.Ctx, teachers repository.TeacherRepository) (models.Teacher, error) {
	userID := userIDFromContext(c)
	if userID == 0 {
		return models.Teacher{}, errors.New("authentication required")
	}

	teacher, err := teachers.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Teacher{}, errors.New("teacher profile not found")
		}
		return models.Teacher{}, err
	}

	return teacher, nil
}
