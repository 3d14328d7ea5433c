package controllers

import (
	"cafe-backend/middlewares"
	"cafe-backend/models"
	"cafe-backend/services"

	"github.com/gofiber/fiber/v2"
)

type BookDTO struct {
	CustomerDTO
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
	EmployeeID uint   `json:"employee_id"`
}

type MergeDTO struct {
	CustomerDTO
	TargetTableID  uint   `json:"target_table_id" validate:"required"`
	SourceTableIDs []uint `json:"source_table_ids" validate:"required,min=1,dive,required"`
}

type SplitDTO struct {
	CustomerDTO
	ToTableID uint      `json:"to_table_id" validate:"required"`
	Items     []ItemDTO `json:"items" validate:"required,min=1,dive"`
}

type TransferDTO struct {
	ToTableID uint `json:"to_table_id" validate:"required"`
}

// GET /api/tables?status=
func (h *Handler) ListTables(c *fiber.Ctx) error {
	tables, err := h.Engine.ListTables(c.UserContext(), models.TableStatus(c.Query("status")))
	if err != nil {
		return err
	}
	return c.JSON(tables)
}

// GET /api/tables/:id
func (h *Handler) GetTable(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	detail, err := h.Engine.GetTable(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

// POST /api/tables/:id/book
func (h *Handler) BookTable(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	var in BookDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.Engine.Book(c.UserContext(), actor(c), services.BookRequest{
		TableID:    id,
		EmployeeID: in.EmployeeID,
		Customer:   in.customer(),
		Date:       in.Date,
		Time:       in.Time,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// POST /api/tables/merge
func (h *Handler) MergeTables(c *fiber.Ctx) error {
	var in MergeDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.Engine.Merge(c.UserContext(), actor(c), services.MergeRequest{
		TargetID:  in.TargetTableID,
		SourceIDs: in.SourceTableIDs,
		Customer:  in.customer(),
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// POST /api/tables/:id/split
func (h *Handler) SplitTable(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	var in SplitDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.Engine.Split(c.UserContext(), actor(c), services.SplitRequest{
		FromID:   id,
		ToID:     in.ToTableID,
		Items:    selection(in.Items),
		Customer: in.customer(),
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// POST /api/tables/:id/transfer
func (h *Handler) TransferTable(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	var in TransferDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	res, err := h.Engine.Transfer(c.UserContext(), actor(c), id, in.ToTableID)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// POST /api/tables/:id/clear
func (h *Handler) ClearTable(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	t, err := h.Engine.Clear(c.UserContext(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// POST /api/tables/:id/release
func (h *Handler) ReleaseTable(c *fiber.Ctx) error {
	id, err := tableParam(c)
	if err != nil {
		return err
	}
	t, err := h.Engine.ReleaseTable(c.UserContext(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(t)
}
