package database

import (
	"fmt"

	"cafe-backend/models"

	"gorm.io/gorm"
)

// Migrate applies idempotent schema migrations:
// - AutoMigrate (tables/columns)
// - Partial unique indexes over active rows (postgres, sqlite)
// - Basic CHECK constraints (postgres)
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Employee{},
		&models.Table{},
		&models.MenuItem{},
		&models.Promotion{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Reservation{},
		&models.ReleaseJob{},
		&models.OperationLog{},
		&models.IdempotencyKey{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	dialect := db.Dialector.Name()

	// --- One active row per composite key. MySQL has no partial indexes;
	// the engine's row locks carry the invariant there.
	if dialect == "postgres" || dialect == "sqlite" {
		indexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_invoice_items_active ON invoice_items (invoice_id, menu_item_id) WHERE is_deleted = false`,
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_reservations_active ON reservations (table_id, employee_id, invoice_id) WHERE is_deleted = false`,
			`CREATE INDEX IF NOT EXISTS idx_reservations_slot ON reservations (table_id, reservation_date, reservation_time)`,
			`CREATE INDEX IF NOT EXISTS idx_release_jobs_pending ON release_jobs (status, due_at)`,
		}
		for _, stmt := range indexes {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}
	}

	if dialect != "postgres" {
		return nil
	}

	// --- Basic CHECK constraints (idempotent) ---
	checks := []struct {
		table, name, expr string
	}{
		{"tables", "chk_tables_status", `status IN ('AVAILABLE','OCCUPIED','RESERVED')`},
		{"invoices", "chk_invoices_status", `status IN ('UNPAID','PAID')`},
		{"invoices", "chk_invoices_total_nonneg", `total >= 0`},
		{"invoice_items", "chk_invoice_items_quantity_nonneg", `quantity >= 0`},
		{"invoice_items", "chk_invoice_items_unit_price_nonneg", `unit_price >= 0`},
		{"menu_items", "chk_menu_items_price_nonneg", `price >= 0`},
	}
	for _, c := range checks {
		stmt := fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s
		ADD CONSTRAINT %[2]s
		CHECK (%[3]s);
	END IF;
END $$;`, c.table, c.name, c.expr)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("check constraint migration failed on %s: %w", c.name, err)
		}
	}
	return nil
}
