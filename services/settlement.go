package services

import (
	"context"
	"errors"
	"time"

	"cafe-backend/events"
	"cafe-backend/models"

	"github.com/shopspring/decimal"
)

// UnknownPayer is recorded when no seating names a serving employee.
const UnknownPayer = "unknown"

type PayRequest struct {
	TableID      uint
	Tendered     decimal.Decimal
	FreeTableNow bool
}

// PaymentResult reports a settlement attempt. Business failures set
// Success=false and leave every record untouched.
type PaymentResult struct {
	Success       bool                 `json:"success"`
	Kind          Kind                 `json:"kind,omitempty"`
	Message       string               `json:"message"`
	Total         decimal.Decimal      `json:"total"`
	Tendered      decimal.Decimal      `json:"tendered"`
	Change        decimal.Decimal      `json:"change"`
	InvoiceID     uint                 `json:"invoice_id,omitempty"`
	InvoiceStatus models.InvoiceStatus `json:"invoice_status,omitempty"`
	PaidByName    string               `json:"paid_by_name,omitempty"`
	PaidByID      *uint                `json:"paid_by_id,omitempty"`
	TableID       uint                 `json:"table_id"`
	TableStatus   models.TableStatus   `json:"table_status,omitempty"`
	ReleaseJobID  string               `json:"release_job_id,omitempty"`
	ReleaseAt     *time.Time           `json:"release_at,omitempty"`
}

// Pay settles the table's open invoice. Only infrastructure failures are
// returned as errors.
func (e *Engine) Pay(ctx context.Context, actor Actor, req PayRequest) (*PaymentResult, error) {
	result := &PaymentResult{TableID: req.TableID, Tendered: req.Tendered.Round(2)}

	err := e.pay(ctx, actor, req, result)
	if err != nil {
		var be *Error
		if errors.As(err, &be) {
			failed := &PaymentResult{
				Kind:     be.Kind,
				Message:  be.Message,
				TableID:  req.TableID,
				Tendered: result.Tendered,
				Total:    result.Total,

				InvoiceID:     result.InvoiceID,
				InvoiceStatus: result.InvoiceStatus,
			}
			return failed, nil
		}
		return nil, err
	}
	result.Success = true
	result.Message = "payment accepted"
	return result, nil
}

func (e *Engine) pay(ctx context.Context, actor Actor, req PayRequest, result *PaymentResult) error {
	tendered := result.Tendered
	if tendered.IsNegative() {
		return Validation("tendered amount must not be negative")
	}

	return e.inTx(ctx, "pay", func(u *unit) error {
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
			return NotFound("table %d has no open invoice", t.ID)
		}
		result.InvoiceID, result.InvoiceStatus = inv.ID, inv.Status
		lines, err := u.ledger.ActiveLines(inv.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return Validation("invoice %d has no items", inv.ID)
		}
		for _, line := range lines {
			if !line.UnitPrice.IsPositive() || line.Quantity <= 0 {
				return Validation("invoice %d has an invalid line for menu item %d", inv.ID, line.MenuItemID)
			}
		}
		total := sumLines(lines)
		result.Total = total
		if tendered.LessThan(total) {
			return InsufficientPayment("tendered %s is less than total %s", tendered.StringFixed(2), total.StringFixed(2))
		}
		change := tendered.Sub(total)

		payer := Payer{Name: UnknownPayer}
		seat, err := u.reservations.LatestForInvoice(inv.ID)
		if err != nil {
			return err
		}
		if seat != nil && seat.Employee != nil {
			id := seat.Employee.ID
			payer = Payer{ID: &id, Name: seat.Employee.DisplayName()}
		}

		if err := u.ledger.MarkPaid(inv, total, tendered, change, payer, u.now); err != nil {
			return err
		}
		if _, err := u.reservations.Detach(inv.ID); err != nil {
			return err
		}

		if req.FreeTableNow {
			if err := u.tables.SetStatus(t, models.TableAvailable); err != nil {
				return err
			}
		} else {
			job, err := e.releases.Enqueue(u.tx, t.ID, inv.ID, t.Version, u.now.Add(e.releaseDelay))
			if err != nil {
				return err
			}
			result.ReleaseJobID = job.ID
			due := job.DueAt
			result.ReleaseAt = &due
		}

		if err := u.record(events.InvoicePaid, actor.EmployeeID, []uint{t.ID}, inv.ID, map[string]any{
			"total":    total.StringFixed(2),
			"tendered": tendered.StringFixed(2),
			"change":   change.StringFixed(2),
			"free_now": req.FreeTableNow,
		}); err != nil {
			return err
		}
		if req.FreeTableNow {
			if err := u.record(events.TableReleased, actor.EmployeeID, []uint{t.ID}, inv.ID, nil); err != nil {
				return err
			}
		}

		result.Change = change
		result.InvoiceID = inv.ID
		result.InvoiceStatus = inv.Status
		result.PaidByName = payer.Name
		result.PaidByID = payer.ID
		result.TableStatus = t.Status
		return nil
	})
}
