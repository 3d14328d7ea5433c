package controllers

import (
	"errors"

	"cafe-backend/middlewares"
	"cafe-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LoginDTO struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

// POST /api/login
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	var employee models.Employee
	err := h.DB.WithContext(c.UserContext()).
		Where("username = ? AND is_deleted = ?", in.Username, false).
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	if err := employee.ComparePassword(in.Password); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := middlewares.GenerateJWT(employee.ID, employee.Username, h.JWTSecret, h.JWTTTL)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"employee": fiber.Map{
			"id":        employee.ID,
			"username":  employee.Username,
			"full_name": employee.FullName,
		},
	})
}
