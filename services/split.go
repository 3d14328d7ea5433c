package services

import (
	"context"

	"cafe-backend/events"
	"cafe-backend/models"
)

type SplitRequest struct {
	FromID   uint
	ToID     uint
	Items    []ItemQuantity
	Customer Customer
}

type SplitResult struct {
	From TableState `json:"from"`
	To   TableState `json:"to"`
}

// Split moves part of one table's order onto another table.
func (e *Engine) Split(ctx context.Context, actor Actor, req SplitRequest) (*SplitResult, error) {
	if req.FromID == req.ToID {
		return nil, Validation("cannot split a table onto itself")
	}
	picked, err := validateSelection(req.Items, true)
	if err != nil {
		return nil, err
	}
	customer := req.Customer.normalized()
	if err := validateSeatingCustomer(customer, false); err != nil {
		return nil, err
	}
	server := e.serverFor(actor)

	var out *SplitResult
	err = e.inTx(ctx, "split", func(u *unit) error {
		tables, err := u.tables.Lock(req.FromID, req.ToID)
		if err != nil {
			return err
		}
		from, to := tables[req.FromID], tables[req.ToID]
		if to.Status == models.TableReserved {
			return IllegalTransition("cannot split into reserved table %d", to.ID)
		}
		src, err := u.ledger.FindOpenInvoice(from.ID)
		if err != nil {
			return err
		}
		if from.Status != models.TableOccupied || src == nil {
			return IllegalTransition("table %d has no open order to split", from.ID)
		}

		lines, err := u.ledger.ActiveLines(src.ID)
		if err != nil {
			return err
		}
		byItem := make(map[uint]models.InvoiceItem, len(lines))
		for _, line := range lines {
			byItem[line.MenuItemID] = line
		}
		for _, it := range picked {
			line, ok := byItem[it.MenuItemID]
			if !ok {
				return InsufficientQuantity("menu item %d is not on table %d", it.MenuItemID, from.ID)
			}
			if it.Quantity > line.Quantity {
				return InsufficientQuantity("menu item %d: requested %d, only %d on table %d",
					it.MenuItemID, it.Quantity, line.Quantity, from.ID)
			}
		}

		dst, err := u.ledger.FindOpenInvoice(to.ID)
		if err != nil {
			return err
		}
		if dst == nil {
			if to.Status == models.TableOccupied {
				return Conflict("table %d is awaiting release after payment", to.ID)
			}
			seat := customer
			if seat.empty() {
				prev, err := u.reservations.LatestForInvoice(src.ID)
				if err != nil {
					return err
				}
				if prev != nil {
					seat = Customer{Name: prev.CustomerName, Phone: prev.CustomerPhone}
				}
			}
			if _, err := u.employee(server); err != nil {
				return err
			}
			if dst, _, err = u.openSeating(to.ID, server, seat); err != nil {
				return err
			}
		}

		for _, it := range picked {
			price := byItem[it.MenuItemID].UnitPrice
			if _, err := u.ledger.DecrementLine(src.ID, it.MenuItemID, it.Quantity); err != nil {
				return err
			}
			if _, err := u.ledger.AddOrIncrementLine(dst.ID, it.MenuItemID, it.Quantity, price); err != nil {
				return err
			}
		}

		for _, side := range []struct {
			table   *models.Table
			invoice *models.Invoice
		}{{from, src}, {to, dst}} {
			if _, err := u.ledger.RecomputeTotal(side.invoice.ID); err != nil {
				return err
			}
			remaining, err := u.ledger.ActiveLines(side.invoice.ID)
			if err != nil {
				return err
			}
			if len(remaining) == 0 {
				if err := u.closeSeating(side.invoice.ID); err != nil {
					return err
				}
				if err := u.tables.SetStatus(side.table, models.TableAvailable); err != nil {
					return err
				}
				continue
			}
			if side.table.Status != models.TableOccupied {
				if err := u.tables.SetStatus(side.table, models.TableOccupied); err != nil {
					return err
				}
			}
		}

		fromState, err := u.state(from)
		if err != nil {
			return err
		}
		toState, err := u.state(to)
		if err != nil {
			return err
		}
		if err := u.record(events.TableSplit, actor.EmployeeID, []uint{from.ID, to.ID}, dst.ID,
			map[string]any{"from_invoice_id": src.ID, "items": picked}); err != nil {
			return err
		}
		out = &SplitResult{From: *fromState, To: *toState}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
