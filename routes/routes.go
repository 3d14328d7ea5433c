package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"cafe-backend/controllers"
	"cafe-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, h *controllers.Handler, log *slog.Logger) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/login", h.Login)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader(h.JWTSecret))

	// Idempotency guard (own short transactions, never the operation's)
	protected.Use(middlewares.Idempotency(h.DB, log))

	// Tables (merge before /:id so it is not read as an id)
	protected.Get("/tables", h.ListTables)
	protected.Post("/tables/merge", h.MergeTables)
	protected.Get("/tables/:id", h.GetTable)
	protected.Post("/tables/:id/book", h.BookTable)
	protected.Post("/tables/:id/split", h.SplitTable)
	protected.Post("/tables/:id/transfer", h.TransferTable)
	protected.Post("/tables/:id/clear", h.ClearTable)
	protected.Post("/tables/:id/release", h.ReleaseTable)

	// Orders
	protected.Post("/tables/:id/items", h.AddItems)
	protected.Post("/tables/:id/items/void", h.VoidItems)
	protected.Post("/tables/:id/promotion", h.ApplyPromotion)

	// Settlement
	protected.Post("/tables/:id/pay", h.PayTable)
}
