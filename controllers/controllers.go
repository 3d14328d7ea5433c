package controllers

import (
	"time"

	"cafe-backend/middlewares"
	"cafe-backend/services"
	"cafe-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Handler carries what the HTTP handlers share.
type Handler struct {
	Engine    *services.Engine
	DB        *gorm.DB
	JWTSecret string
	JWTTTL    time.Duration
}

func New(engine *services.Engine, db *gorm.DB, jwtSecret string, jwtTTL time.Duration) *Handler {
	return &Handler{Engine: engine, DB: db, JWTSecret: jwtSecret, JWTTTL: jwtTTL}
}

func actor(c *fiber.Ctx) services.Actor {
	return services.Actor{EmployeeID: middlewares.EmployeeID(c)}
}

func tableParam(c *fiber.Ctx) (uint, error) {
	id := utils.ParseID(c.Params("id"))
	if id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid table id in path")
	}
	return id, nil
}

// CustomerDTO is the optional customer identity several requests carry.
type CustomerDTO struct {
	CustomerName  string `json:"customer_name" validate:"omitempty,max=50"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=15"`
}

func (d CustomerDTO) customer() services.Customer {
	return services.Customer{Name: d.CustomerName, Phone: d.CustomerPhone}
}

type ItemDTO struct {
	MenuItemID uint `json:"menu_item_id"`
	Quantity   int  `json:"quantity"`
}

func selection(items []ItemDTO) []services.ItemQuantity {
	out := make([]services.ItemQuantity, len(items))
	for i, it := range items {
		out[i] = services.ItemQuantity{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
	}
	return out
}
