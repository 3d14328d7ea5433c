package services

import (
	"context"

	"cafe-backend/events"
	"cafe-backend/models"
)

type TransferResult struct {
	From         models.Table         `json:"from"`
	To           models.Table         `json:"to"`
	Invoice      models.Invoice       `json:"invoice"`
	Reservations []models.Reservation `json:"reservations"`
}

// Transfer moves a whole seating to an AVAILABLE table.
func (e *Engine) Transfer(ctx context.Context, actor Actor, fromID, toID uint) (*TransferResult, error) {
	if fromID == toID {
		return nil, Validation("cannot transfer a table onto itself")
	}

	var out *TransferResult
	err := e.inTx(ctx, "transfer", func(u *unit) error {
		tables, err := u.tables.Lock(fromID, toID)
		if err != nil {
			return err
		}
		from, to := tables[fromID], tables[toID]
		if from.Status != models.TableReserved && from.Status != models.TableOccupied {
			return IllegalTransition("table %d is %s, nothing to transfer", from.ID, from.Status)
		}
		if to.Status != models.TableAvailable {
			return IllegalTransition("table %d is %s, transfers need an AVAILABLE table", to.ID, to.Status)
		}
		inv, err := u.ledger.FindOpenInvoice(from.ID)
		if err != nil {
			return err
		}
		if inv == nil {
			return IllegalTransition("table %d has no open order to transfer", from.ID)
		}
		existing, err := u.ledger.FindOpenInvoice(to.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return Conflict("table %d still carries open invoice %d", to.ID, existing.ID)
		}

		current, err := u.reservations.ActiveForInvoice(inv.ID)
		if err != nil {
			return err
		}
		moved := make([]models.Reservation, 0, len(current))
		for _, res := range current {
			if res.TableID != from.ID {
				continue
			}
			next, err := u.reservations.Move(res, to.ID)
			if err != nil {
				return err
			}
			moved = append(moved, *next)
		}

		prior := from.Status
		if err := u.tables.SetStatus(to, prior); err != nil {
			return err
		}
		if err := u.tables.SetStatus(from, models.TableAvailable); err != nil {
			return err
		}
		if err := u.record(events.TableTransferred, actor.EmployeeID, []uint{from.ID, to.ID}, inv.ID,
			map[string]any{"status": prior}); err != nil {
			return err
		}
		out = &TransferResult{From: *from, To: *to, Invoice: *inv, Reservations: moved}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
