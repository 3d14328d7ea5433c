package services

import (
	"strings"
	"testing"

	"cafe-backend/events"
	"cafe-backend/models"
)

func TestBook_ReservesTable(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.Book(f.ctx, f.actor, BookRequest{
		TableID:  f.t1,
		Customer: Customer{Name: "Alice", Phone: "0123456789"},
		Date:     "2026-03-11",
		Time:     "18:00",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	wantStatus(t, f, f.t1, models.TableReserved)
	inv := f.openInvoice(f.t1)
	if inv == nil {
		t.Fatal("expected an open invoice")
	}
	if inv.ID != res.Invoice.ID || inv.Status != models.InvoiceUnpaid || !inv.Total.IsZero() {
		t.Fatalf("invoice = %+v", inv)
	}
	seats := f.activeReservations(inv.ID)
	if len(seats) != 1 || seats[0].CustomerName != "Alice" || seats[0].ReservationTime != "18:00" {
		t.Fatalf("reservations = %+v", seats)
	}
	if seats[0].EmployeeID != f.anna.ID {
		t.Errorf("served by %d, want actor %d", seats[0].EmployeeID, f.anna.ID)
	}

	if got := f.events.Types(); len(got) != 1 || got[0] != events.TableBooked {
		t.Errorf("events = %v", got)
	}
	if len(f.notifier.notices) != 1 || f.notifier.notices[0].CustomerPhone != "0123456789" {
		t.Errorf("notices = %+v", f.notifier.notices)
	}

	var logs int64
	f.db.Model(&models.OperationLog{}).Where("action = ?", string(events.TableBooked)).Count(&logs)
	if logs != 1 {
		t.Errorf("operation logs = %d", logs)
	}
	f.checkInvariants()
}

func TestBook_Rejections(t *testing.T) {
	base := BookRequest{
		Customer: Customer{Name: "Alice", Phone: "0123456789"},
		Date:     "2026-03-11",
		Time:     "18:00",
	}
	tests := []struct {
		name   string
		mutate func(f *fixture, r *BookRequest)
		want   Kind
	}{
		{name: "missing name", mutate: func(_ *fixture, r *BookRequest) { r.Customer.Name = " " }, want: KindValidation},
		{name: "name too long", mutate: func(_ *fixture, r *BookRequest) { r.Customer.Name = strings.Repeat("a", 21) }, want: KindValidation},
		{name: "short phone", mutate: func(_ *fixture, r *BookRequest) { r.Customer.Phone = "123456789" }, want: KindValidation},
		{name: "letters in phone", mutate: func(_ *fixture, r *BookRequest) { r.Customer.Phone = "01234abc89" }, want: KindValidation},
		{name: "bad date", mutate: func(_ *fixture, r *BookRequest) { r.Date = "11.03.2026" }, want: KindValidation},
		{name: "in the past", mutate: func(_ *fixture, r *BookRequest) { r.Date = "2026-03-10"; r.Time = "11:00" }, want: KindValidation},
		{name: "unknown table", mutate: func(_ *fixture, r *BookRequest) { r.TableID = 999 }, want: KindNotFound},
		{name: "unknown employee", mutate: func(_ *fixture, r *BookRequest) { r.EmployeeID = 999 }, want: KindNotFound},
		{name: "occupied table", mutate: func(f *fixture, _ *BookRequest) { f.seat(f.t1, qty(f.coffee, 1)) }, want: KindIllegalTransition},
		{name: "slot taken", mutate: func(f *fixture, r *BookRequest) {
			old := models.Invoice{Status: models.InvoicePaid}
			f.mustCreate(&old)
			f.mustCreate(&models.Reservation{TableID: f.t1, EmployeeID: f.anna.ID, InvoiceID: old.ID,
				ReservationDate: r.Date, ReservationTime: r.Time})
		}, want: KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := base
			req.TableID = f.t1
			tt.mutate(f, &req)
			before := len(f.events.Events())

			_, err := f.engine.Book(f.ctx, f.actor, req)
			wantKind(t, err, tt.want)
			if len(f.events.Events()) != before {
				t.Errorf("rejected booking published an event")
			}
			if len(f.notifier.notices) != 0 {
				t.Errorf("rejected booking sent a notice")
			}
		})
	}
}

func TestBook_ThenClear(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.Book(f.ctx, f.actor, BookRequest{
		TableID:  f.t1,
		Customer: Customer{Name: "Alice", Phone: "0123456789"},
		Date:     "2026-03-11",
		Time:     "18:00",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	versionBefore := f.table(f.t1).Version

	if _, err := f.engine.Clear(f.ctx, f.actor, f.t1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	wantStatus(t, f, f.t1, models.TableAvailable)
	if f.table(f.t1).Version != versionBefore+1 {
		t.Errorf("clear must bump the table version")
	}
	if inv := f.openInvoice(f.t1); inv != nil {
		t.Fatalf("open invoice survived clear: %+v", inv)
	}
	if seats := f.activeReservations(res.Invoice.ID); len(seats) != 0 {
		t.Fatalf("active reservations survived clear: %+v", seats)
	}
	if !f.invoice(res.Invoice.ID).IsDeleted {
		t.Fatalf("invoice should be tombstoned")
	}
	f.checkInvariants()
}

func TestClear_RejectsOccupied(t *testing.T) {
	f := newFixture(t)
	f.seat(f.t1, qty(f.coffee, 2))

	_, err := f.engine.Clear(f.ctx, f.actor, f.t1)
	wantKind(t, err, KindIllegalTransition)
	if got := f.quantities(f.t1)[f.coffee.ID]; got != 2 {
		t.Fatalf("coffee qty after rejected clear = %d", got)
	}
}

func TestClear_AvailableTableIsNoop(t *testing.T) {
	f := newFixture(t)
	tbl, err := f.engine.Clear(f.ctx, f.actor, f.t2)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if tbl.Status != models.TableAvailable {
		t.Fatalf("status = %s", tbl.Status)
	}
}
