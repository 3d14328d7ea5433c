package controllers

import (
	"cafe-backend/middlewares"
	"cafe-backend/services"

	"github.com/gofiber/fiber/v2"
)

type AddItemsDTO struct {
	CustomerDTO
	Items []ItemDTO `json:"items" validate:"required,min=1,dive"`
}

type VoidItemsDTO struct {
	Items []ItemDTO `json:"items" validate:"required,min=1,dive"`
}

type PromotionDTO struct {
	PromotionID uint `json:"promotion_id" validate:"required"`
}

// POST /api/tables/:id/items
func (h *Handler) AddItems(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	var in AddItemsDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	st, err := h.Engine.AddItems(c.UserContext(), actor(c), services.AddItemsRequest{
		TableID:  id,
		Items:    selection(in.Items),
		Customer: in.customer(),
	})
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// POST /api/tables/:id/items/void
func (h *Handler) VoidItems(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	var in VoidItemsDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	st, err := h.Engine.VoidItems(c.UserContext(), actor(c), services.VoidItemsRequest{
		TableID: id,
		Items:   selection(in.Items),
	})
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// POST /api/tables/:id/promotion
func (h *Handler) ApplyPromotion(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	var in PromotionDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	inv, err := h.Engine.ApplyPromotion(c.UserContext(), actor(c), id, in.PromotionID)
	if err != nil {
		return err
	}
	return c.JSON(inv)
}
