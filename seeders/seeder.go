package seeders

import (
	"fmt"
	"log/slog"

	"cafe-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const tableCount = 10

// Seed fills an empty database with the floor plan, a small menu and the
// default employee. Rows that already exist are left alone.
func Seed(db *gorm.DB, adminPassword string, log *slog.Logger) error {
	return db.Transaction(func(tx *gorm.DB) error {
		// ============= Employees =============
		var employees int64
		if err := tx.Model(&models.Employee{}).Count(&employees).Error; err != nil {
			return fmt.Errorf("count employees: %w", err)
		}
		if employees == 0 {
			admin := models.Employee{ID: 1, Username: "admin", FullName: "Administrator"}
			if err := admin.SetPassword(adminPassword); err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			if err := tx.Create(&admin).Error; err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			// An explicit id leaves the postgres sequence behind.
			if tx.Dialector.Name() == "postgres" {
				if err := tx.Exec(`SELECT setval(pg_get_serial_sequence('employees', 'id'), (SELECT MAX(id) FROM employees))`).Error; err != nil {
					return fmt.Errorf("advance employee sequence: %w", err)
				}
			}
		}

		// ============= Tables =============
		for i := 1; i <= tableCount; i++ {
			t := models.Table{Name: fmt.Sprintf("Table %d", i), Status: models.TableAvailable}
			if err := tx.Where(models.Table{Name: t.Name}).FirstOrCreate(&t).Error; err != nil {
				return fmt.Errorf("seed %s: %w", t.Name, err)
			}
		}

		// ============= Menu =============
		menu := []models.MenuItem{
			{Name: "Espresso", Description: "Single shot", Price: decimal.RequireFromString("25000"), Active: true},
			{Name: "Cappuccino", Description: "Espresso with steamed milk foam", Price: decimal.RequireFromString("35000"), Active: true},
			{Name: "Iced Milk Coffee", Description: "Robusta with condensed milk", Price: decimal.RequireFromString("29000"), Active: true},
			{Name: "Peach Tea", Description: "Black tea, peach, lemongrass", Price: decimal.RequireFromString("32000"), Active: true},
			{Name: "Croissant", Description: "Butter croissant", Price: decimal.RequireFromString("28000"), Active: true},
			{Name: "Tiramisu", Description: "House tiramisu", Price: decimal.RequireFromString("45000"), Active: true},
		}
		for _, item := range menu {
			if err := tx.Where(models.MenuItem{Name: item.Name}).FirstOrCreate(&item).Error; err != nil {
				return fmt.Errorf("seed menu item %s: %w", item.Name, err)
			}
		}

		log.Info("seed complete", slog.Int("tables", tableCount), slog.Int("menu_items", len(menu)))
		return nil
	})
}
