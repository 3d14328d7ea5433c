package services

import (
	"context"
	"time"

	"cafe-backend/events"
	"cafe-backend/models"
	"cafe-backend/notify"
)

type BookRequest struct {
	TableID uint
	// EmployeeID serves the booking; zero means the actor.
	EmployeeID uint
	Customer   Customer
	Date       string
	Time       string
}

type BookResult struct {
	Table       models.Table       `json:"table"`
	Invoice     models.Invoice     `json:"invoice"`
	Reservation models.Reservation `json:"reservation"`
}

// Book reserves an AVAILABLE table for a future slot.
func (e *Engine) Book(ctx context.Context, actor Actor, req BookRequest) (*BookResult, error) {
	customer := req.Customer.normalized()
	if err := validateBookingCustomer(customer); err != nil {
		return nil, err
	}
	now := e.now()
	at, err := parseSlot(req.Date, req.Time, now.Location())
	if err != nil {
		return nil, err
	}
	if at.Before(now.Truncate(time.Minute)) {
		return nil, Validation("reservation %s %s is in the past", req.Date, req.Time)
	}
	slot := Slot{Date: at.Format(dateLayout), Time: at.Format(timeLayout)}

	employeeID := req.EmployeeID
	if employeeID == 0 {
		employeeID = e.serverFor(actor)
	}

	var out *BookResult
	err = e.inTx(ctx, "book", func(u *unit) error {
		tables, err := u.tables.Lock(req.TableID)
		if err != nil {
			return err
		}
		t := tables[req.TableID]
		if t.Status != models.TableAvailable {
			return IllegalTransition("table %d is %s, only AVAILABLE tables can be booked", t.ID, t.Status)
		}
		clash, err := u.reservations.Clashes(t.ID, slot)
		if err != nil {
			return err
		}
		if clash {
			return Conflict("table %d already has a reservation at %s %s", t.ID, slot.Date, slot.Time)
		}
		if _, err := u.employee(employeeID); err != nil {
			return err
		}

		inv, err := u.ledger.CreateInvoice()
		if err != nil {
			return err
		}
		res, err := u.reservations.Attach(
			models.ReservationKey{TableID: t.ID, EmployeeID: employeeID, InvoiceID: inv.ID},
			customer, slot)
		if err != nil {
			return err
		}
		if err := u.tables.SetStatus(t, models.TableReserved); err != nil {
			return err
		}
		if err := u.record(events.TableBooked, actor.EmployeeID, []uint{t.ID}, inv.ID, map[string]any{
			"customer_name": customer.Name,
			"date":          slot.Date,
			"time":          slot.Time,
			"employee_id":   employeeID,
		}); err != nil {
			return err
		}
		u.notices = append(u.notices, notify.BookingNotice{
			CustomerName:  customer.Name,
			CustomerPhone: customer.Phone,
			TableName:     t.Name,
			Date:          slot.Date,
			Time:          slot.Time,
		})
		out = &BookResult{Table: *t, Invoice: *inv, Reservation: *res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
