package services

import (
	"context"

	"cafe-backend/events"
	"cafe-backend/models"
)

type MergeRequest struct {
	TargetID  uint
	SourceIDs []uint
	Customer  Customer
}

type MergeResult struct {
	Target   TableState `json:"target"`
	Released []uint     `json:"released_table_ids"`
}

// Merge folds every source table's open order into the target's.
func (e *Engine) Merge(ctx context.Context, actor Actor, req MergeRequest) (*MergeResult, error) {
	sources := make([]uint, 0, len(req.SourceIDs))
	for _, id := range uniqueSorted(req.SourceIDs) {
		if id != req.TargetID {
			sources = append(sources, id)
		}
	}
	if req.TargetID == 0 || len(sources) == 0 {
		return nil, Validation("merge needs a target and at least one other table")
	}
	customer := req.Customer.normalized()
	server := e.serverFor(actor)

	var out *MergeResult
	err := e.inTx(ctx, "merge", func(u *unit) error {
		tables, err := u.tables.Lock(append([]uint{req.TargetID}, sources...)...)
		if err != nil {
			return err
		}
		target := tables[req.TargetID]
		if target.Status == models.TableReserved {
			return IllegalTransition("cannot merge into reserved table %d", target.ID)
		}
		occupiedSources := 0
		for _, id := range sources {
			switch tables[id].Status {
			case models.TableReserved:
				return IllegalTransition("cannot merge reserved table %d", id)
			case models.TableOccupied:
				occupiedSources++
			}
		}

		needsCustomer := len(sources) > 1 || target.Status == models.TableOccupied || occupiedSources > 0
		if err := validateSeatingCustomer(customer, needsCustomer); err != nil {
			return err
		}

		targetInv, err := u.ledger.FindOpenInvoice(target.ID)
		if err != nil {
			return err
		}
		if target.Status == models.TableOccupied && targetInv == nil {
			return Conflict("table %d is awaiting release after payment", target.ID)
		}

		type absorbed struct {
			table   *models.Table
			invoice *models.Invoice
		}
		var merged []absorbed
		for _, id := range sources {
			inv, err := u.ledger.FindOpenInvoice(id)
			if err != nil {
				return err
			}
			if inv != nil {
				merged = append(merged, absorbed{table: tables[id], invoice: inv})
			}
		}
		if len(merged) == 0 {
			return IllegalTransition("none of the source tables has an open order")
		}

		if targetInv == nil {
			seat := customer
			if len(merged) == 1 {
				// A lone source hands its customer over to the new seating.
				src, err := u.reservations.LatestForInvoice(merged[0].invoice.ID)
				if err != nil {
					return err
				}
				if src != nil && src.CustomerName != "" {
					seat = Customer{Name: src.CustomerName, Phone: src.CustomerPhone}
				}
			}
			if _, err := u.employee(server); err != nil {
				return err
			}
			if targetInv, _, err = u.openSeating(target.ID, server, seat); err != nil {
				return err
			}
		}

		released := make([]uint, 0, len(merged))
		for _, m := range merged {
			lines, err := u.ledger.ActiveLines(m.invoice.ID)
			if err != nil {
				return err
			}
			// An existing target line keeps its own unit price.
			for _, line := range lines {
				if _, err := u.ledger.AddOrIncrementLine(targetInv.ID, line.MenuItemID, line.Quantity, line.UnitPrice); err != nil {
					return err
				}
			}
			if err := u.closeSeating(m.invoice.ID); err != nil {
				return err
			}
			if err := u.tables.SetStatus(m.table, models.TableAvailable); err != nil {
				return err
			}
			released = append(released, m.table.ID)
		}

		if occupiedSources > 1 {
			if err := u.reservations.Rename(targetInv.ID, customer); err != nil {
				return err
			}
		}
		if _, err := u.ledger.RecomputeTotal(targetInv.ID); err != nil {
			return err
		}
		if target.Status != models.TableOccupied {
			if err := u.tables.SetStatus(target, models.TableOccupied); err != nil {
				return err
			}
		}

		st, err := u.state(target)
		if err != nil {
			return err
		}
		if err := u.record(events.TableMerged, actor.EmployeeID, append([]uint{target.ID}, released...), targetInv.ID,
			map[string]any{"sources": released}); err != nil {
			return err
		}
		out = &MergeResult{Target: *st, Released: released}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
