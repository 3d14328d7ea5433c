package controllers

import (
	"cafe-backend/middlewares"
	"cafe-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PayDTO struct {
	Tendered  decimal.Decimal `json:"tendered"`
	FreeTable bool            `json:"free_table"`
}

// POST /api/tables/:id/pay
// A rejected payment still answers with the full result body; only the
// status code changes.
func (h *Handler) PayTable(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	var in PayDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.Engine.Pay(c.UserContext(), actor(c), services.PayRequest{
		TableID:      id,
		Tendered:     in.Tendered,
		FreeTableNow: in.FreeTable,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return c.Status(middlewares.StatusFor(res.Kind)).JSON(res)
	}
	return c.JSON(res)
}
