package services

import (
	"context"

	"cafe-backend/events"
	"cafe-backend/models"
)

// Clear drops a table's booking or empty seating. OCCUPIED tables must be
// paid or transferred instead.
func (e *Engine) Clear(ctx context.Context, actor Actor, tableID uint) (*models.Table, error) {
	var out *models.Table
	err := e.inTx(ctx, "clear", func(u *unit) error {
		tables, err := u.tables.Lock(tableID)
		if err != nil {
			return err
		}
		t := tables[tableID]
		if t.Status == models.TableOccupied {
			return IllegalTransition("table %d is occupied; pay or transfer it first", t.ID)
		}
		inv, err := u.ledger.FindOpenInvoice(t.ID)
		if err != nil {
			return err
		}
		var invoiceID uint
		if inv != nil {
			invoiceID = inv.ID
			if err := u.closeSeating(inv.ID); err != nil {
				return err
			}
		}
		if err := u.tables.SetStatus(t, models.TableAvailable); err != nil {
			return err
		}
		if err := u.record(events.TableCleared, actor.EmployeeID, []uint{t.ID}, invoiceID, nil); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseTable frees a table whose order has been settled. The version bump
// turns any pending deferred release into a no-op.
func (e *Engine) ReleaseTable(ctx context.Context, actor Actor, tableID uint) (*models.Table, error) {
	var out *models.Table
	err := e.inTx(ctx, "release", func(u *unit) error {
		tables, err := u.tables.Lock(tableID)
		if err != nil {
			return err
		}
		t := tables[tableID]
		inv, err := u.ledger.FindOpenInvoice(t.ID)
		if err != nil {
			return err
		}
		if inv != nil {
			return IllegalTransition("table %d has open invoice %d", t.ID, inv.ID)
		}
		if err := u.tables.SetStatus(t, models.TableAvailable); err != nil {
			return err
		}
		if err := u.record(events.TableReleased, actor.EmployeeID, []uint{t.ID}, 0,
			map[string]any{"manual": true}); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
