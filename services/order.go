package services

import (
	"context"

	"cafe-backend/events"
	"cafe-backend/models"

	"github.com/shopspring/decimal"
)

type AddItemsRequest struct {
	TableID  uint
	Items    []ItemQuantity
	Customer Customer
}

type VoidItemsRequest struct {
	TableID uint
	Items   []ItemQuantity
}

// AddItems orders items on a table, seating a walk-in when the table has no
// open invoice. Prices are read from the catalog and frozen on the lines.
func (e *Engine) AddItems(ctx context.Context, actor Actor, req AddItemsRequest) (*TableState, error) {
	picked, err := validateSelection(req.Items, false)
	if err != nil {
		return nil, err
	}
	customer := req.Customer.normalized()
	if err := validateSeatingCustomer(customer, false); err != nil {
		return nil, err
	}
	prices := make(map[uint]decimal.Decimal, len(picked))
	for _, it := range picked {
		ok, err := e.catalog.Exists(ctx, it.MenuItemID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NotFound("menu item %d not found", it.MenuItemID)
		}
		if prices[it.MenuItemID], err = e.catalog.PriceOf(ctx, it.MenuItemID); err != nil {
			return nil, err
		}
	}
	server := e.serverFor(actor)

	var out *TableState
	err = e.inTx(ctx, "add_items", func(u *unit) error {
		tables, err := u.tables.Lock(req.TableID)
		if err != nil {
			return err
		}
		t := tables[req.TableID]
		inv, err := u.ledger.FindOpenInvoice(t.ID)
		if err != nil {
			return err
		}
		if inv == nil {
			if t.Status == models.TableOccupied {
				return Conflict("table %d is awaiting release after payment", t.ID)
			}
			if _, err := u.employee(server); err != nil {
				return err
			}
			if inv, _, err = u.openSeating(t.ID, server, customer); err != nil {
				return err
			}
		}
		for _, it := range picked {
			if _, err := u.ledger.AddOrIncrementLine(inv.ID, it.MenuItemID, it.Quantity, prices[it.MenuItemID]); err != nil {
				return err
			}
		}
		if _, err := u.ledger.RecomputeTotal(inv.ID); err != nil {
			return err
		}
		if t.Status != models.TableOccupied {
			if err := u.tables.SetStatus(t, models.TableOccupied); err != nil {
				return err
			}
		}
		if out, err = u.state(t); err != nil {
			return err
		}
		return u.record(events.InvoiceItemsAdded, actor.EmployeeID, []uint{t.ID}, inv.ID, map[string]any{"items": picked})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VoidItems takes items back off a table's open invoice. An invoice left
// without lines is removed and the table is freed.
func (e *Engine) VoidItems(ctx context.Context, actor Actor, req VoidItemsRequest) (*TableState, error) {
	picked, err := validateSelection(req.Items, false)
	if err != nil {
		return nil, err
	}

	var out *TableState
	err = e.inTx(ctx, "void_items", func(u *unit) error {
		tables, err := u.tables.Lock(req.TableID)
		if err != nil {
			return err
		}
		t := tables[req.TableID]
		inv, err := u.ledger.FindOpenInvoice(t.ID)
		if err != nil {
			return err
		}
		if inv == nil {
			return NotFound("table %d has no open order", t.ID)
		}
		for _, it := range picked {
			if _, err := u.ledger.DecrementLine(inv.ID, it.MenuItemID, it.Quantity); err != nil {
				return err
			}
		}
		if _, err := u.ledger.RecomputeTotal(inv.ID); err != nil {
			return err
		}
		remaining, err := u.ledger.ActiveLines(inv.ID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := u.closeSeating(inv.ID); err != nil {
				return err
			}
			if err := u.tables.SetStatus(t, models.TableAvailable); err != nil {
				return err
			}
		}
		if out, err = u.state(t); err != nil {
			return err
		}
		return u.record(events.InvoiceItemsVoid, actor.EmployeeID, []uint{t.ID}, inv.ID, map[string]any{"items": picked})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyPromotion attaches an active promotion to the table's open invoice.
func (e *Engine) ApplyPromotion(ctx context.Context, actor Actor, tableID, promotionID uint) (*models.Invoice, error) {
	if promotionID == 0 {
		return nil, Validation("promotion id is required")
	}
	promo, err := e.promotions.Active(ctx, promotionID, e.now())
	if err != nil {
		return nil, err
	}

	var out *models.Invoice
	err = e.inTx(ctx, "apply_promotion", func(u *unit) error {
		tables, err := u.tables.Lock(tableID)
		if err != nil {
			return err
		}
		inv, err := u.ledger.FindOpenInvoice(tables[tableID].ID)
		if err != nil {
			return err
		}
		if inv == nil {
			return NotFound("table %d has no open order", tableID)
		}
		if err := u.ledger.SetPromotion(inv, promo.ID); err != nil {
			return err
		}
		inv.Promotion = promo
		out = inv
		return u.record(events.InvoicePromotion, actor.EmployeeID, []uint{tableID}, inv.ID, map[string]any{"promotion_id": promo.ID})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
