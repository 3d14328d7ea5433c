package services

import (
	"testing"

	"cafe-backend/models"

	"gorm.io/gorm"
)

func TestLedger_Lines(t *testing.T) {
	f := newFixture(t)
	err := f.db.Transaction(func(tx *gorm.DB) error {
		l := NewLedger(tx)
		inv, err := l.CreateInvoice()
		if err != nil {
			return err
		}

		if _, err := l.AddOrIncrementLine(inv.ID, f.coffee.ID, 2, dec("20")); err != nil {
			return err
		}
		// Same item folds into the existing row and keeps its frozen price.
		line, err := l.AddOrIncrementLine(inv.ID, f.coffee.ID, 1, dec("25"))
		if err != nil {
			return err
		}
		if line.Quantity != 3 || !line.UnitPrice.Equal(dec("20")) {
			t.Errorf("folded line = %+v", line)
		}
		if _, err := l.AddOrIncrementLine(inv.ID, f.tea.ID, 1, dec("15.50")); err != nil {
			return err
		}

		total, err := l.RecomputeTotal(inv.ID)
		if err != nil {
			return err
		}
		if !total.Equal(dec("75.50")) {
			t.Errorf("total = %s, want 75.50", total)
		}

		_, err = l.DecrementLine(inv.ID, f.coffee.ID, 4)
		wantKind(t, err, KindInsufficientQuantity)
		_, err = l.DecrementLine(inv.ID, f.cake.ID, 1)
		wantKind(t, err, KindInsufficientQuantity)
		_, err = l.AddOrIncrementLine(inv.ID, f.cake.ID, 0, dec("1"))
		wantKind(t, err, KindValidation)

		line, err = l.DecrementLine(inv.ID, f.tea.ID, 1)
		if err != nil {
			return err
		}
		if !line.IsDeleted || line.Quantity != 0 {
			t.Errorf("tea line should be tombstoned: %+v", line)
		}
		lines, err := l.ActiveLines(inv.ID)
		if err != nil {
			return err
		}
		if len(lines) != 1 || lines[0].MenuItemID != f.coffee.ID {
			t.Errorf("active lines = %+v", lines)
		}

		// A fresh line after a tombstone is a new row, not a revival.
		again, err := l.AddOrIncrementLine(inv.ID, f.tea.ID, 1, dec("15"))
		if err != nil {
			return err
		}
		if again.ID == line.ID {
			t.Errorf("tombstoned line was reactivated")
		}

		if err := l.SoftDeleteInvoice(inv.ID); err != nil {
			return err
		}
		if lines, _ := l.ActiveLines(inv.ID); len(lines) != 0 {
			t.Errorf("lines survive invoice tombstone")
		}
		_, err = l.Invoice(inv.ID)
		wantKind(t, err, KindNotFound)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLedger_ReturnedLineMatchesStoredRow(t *testing.T) {
	f := newFixture(t)
	l := NewLedger(f.db)
	inv, err := l.CreateInvoice()
	if err != nil {
		t.Fatal(err)
	}
	stored := func(id uint) models.InvoiceItem {
		t.Helper()
		var row models.InvoiceItem
		if err := f.db.First(&row, id).Error; err != nil {
			t.Fatalf("reload line %d: %v", id, err)
		}
		return row
	}

	if _, err := l.AddOrIncrementLine(inv.ID, f.coffee.ID, 2, dec("20")); err != nil {
		t.Fatal(err)
	}
	line, err := l.AddOrIncrementLine(inv.ID, f.coffee.ID, 1, dec("20"))
	if err != nil {
		t.Fatal(err)
	}
	if row := stored(line.ID); line.Quantity != 3 || row.Quantity != 3 {
		t.Fatalf("increment: returned qty=%d, stored qty=%d, want 3", line.Quantity, row.Quantity)
	}

	line, err = l.DecrementLine(inv.ID, f.coffee.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if row := stored(line.ID); line.Quantity != 2 || line.IsDeleted || row.Quantity != 2 || row.IsDeleted {
		t.Fatalf("decrement: returned %d/%v, stored %d/%v", line.Quantity, line.IsDeleted, row.Quantity, row.IsDeleted)
	}

	line, err = l.DecrementLine(inv.ID, f.coffee.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	row := stored(line.ID)
	if line.Quantity != 0 || !line.IsDeleted || row.Quantity != 0 || !row.IsDeleted {
		t.Fatalf("decrement to zero: returned %d/%v, stored %d/%v", line.Quantity, line.IsDeleted, row.Quantity, row.IsDeleted)
	}
}

func TestTableRegistry(t *testing.T) {
	f := newFixture(t)
	r := NewTableRegistry(f.db)

	_, err := r.Get(999)
	wantKind(t, err, KindNotFound)

	f.db.Model(&models.Table{}).Where("id = ?", f.t4).Update("is_deleted", true)
	_, err = r.Get(f.t4)
	wantKind(t, err, KindNotFound)
	_, err = r.Lock(f.t1, f.t4)
	wantKind(t, err, KindNotFound)

	locked, err := r.Lock(f.t2, f.t1, f.t2)
	if err != nil {
		t.Fatal(err)
	}
	if len(locked) != 2 {
		t.Fatalf("locked %d tables", len(locked))
	}

	stale := *locked[f.t1]
	if err := r.SetStatus(locked[f.t1], models.TableOccupied); err != nil {
		t.Fatal(err)
	}
	if locked[f.t1].Version != stale.Version+1 {
		t.Errorf("version not bumped")
	}
	err = r.SetStatus(&stale, models.TableAvailable)
	wantKind(t, err, KindConflict)

	active, err := r.ListActive("")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 3 {
		t.Errorf("active tables = %d, want 3", len(active))
	}
	occupied, err := r.ListActive(models.TableOccupied)
	if err != nil {
		t.Fatal(err)
	}
	if len(occupied) != 1 || occupied[0].ID != f.t1 {
		t.Errorf("occupied = %+v", occupied)
	}
}

func TestReservationLinker_Latest(t *testing.T) {
	f := newFixture(t)
	err := f.db.Transaction(func(tx *gorm.DB) error {
		l := NewLedger(tx)
		r := NewReservationLinker(tx)
		inv, err := l.CreateInvoice()
		if err != nil {
			return err
		}
		if _, err := r.Attach(models.ReservationKey{TableID: f.t1, EmployeeID: f.anna.ID, InvoiceID: inv.ID},
			Customer{Name: "Early"}, Slot{Date: "2026-03-10", Time: "09:00"}); err != nil {
			return err
		}
		if _, err := r.Attach(models.ReservationKey{TableID: f.t1, EmployeeID: f.ben.ID, InvoiceID: inv.ID},
			Customer{Name: "Late"}, Slot{Date: "2026-03-10", Time: "10:30"}); err != nil {
			return err
		}

		latest, err := r.LatestFor(f.t1)
		if err != nil {
			return err
		}
		if latest == nil || latest.CustomerName != "Late" || latest.Employee == nil || latest.Employee.ID != f.ben.ID {
			t.Errorf("latest = %+v", latest)
		}
		clash, err := r.Clashes(f.t1, Slot{Date: "2026-03-10", Time: "09:00"})
		if err != nil || !clash {
			t.Errorf("expected clash (%v)", err)
		}

		if err := r.Rename(inv.ID, Customer{Name: "Group", Phone: "0123456789"}); err != nil {
			return err
		}
		n, err := r.Detach(inv.ID)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("detached %d, want 2", n)
		}
		if latest, _ := r.LatestFor(f.t1); latest != nil {
			t.Errorf("detached reservation still latest")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestValidateSelection(t *testing.T) {
	tests := []struct {
		name      string
		items     []ItemQuantity
		allowZero bool
		picked    int
		ok        bool
	}{
		{name: "empty", items: nil},
		{name: "zero not allowed", items: []ItemQuantity{{MenuItemID: 1, Quantity: 0}}},
		{name: "zero skipped", items: []ItemQuantity{{1, 0}, {2, 3}}, allowZero: true, picked: 1, ok: true},
		{name: "all zero", items: []ItemQuantity{{1, 0}}, allowZero: true},
		{name: "missing id", items: []ItemQuantity{{0, 1}}},
		{name: "ok", items: []ItemQuantity{{1, 1}, {2, 2}}, picked: 2, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picked, err := validateSelection(tt.items, tt.allowZero)
			if tt.ok {
				if err != nil || len(picked) != tt.picked {
					t.Fatalf("picked=%v err=%v", picked, err)
				}
				return
			}
			wantKind(t, err, KindValidation)
		})
	}
}

func TestValidateCustomer(t *testing.T) {
	if err := validateSeatingCustomer(Customer{}, false); err != nil {
		t.Errorf("empty optional customer: %v", err)
	}
	wantKind(t, validateSeatingCustomer(Customer{}, true), KindValidation)
	wantKind(t, validateSeatingCustomer(Customer{Name: "A", Phone: "12"}, false), KindValidation)
	if err := validateSeatingCustomer(Customer{Name: "Table of friends", Phone: "+49151123456"}, true); err != nil {
		t.Errorf("E.164 phone rejected: %v", err)
	}
	wantKind(t, validateBookingCustomer(Customer{Name: "A name longer than twenty", Phone: "0123456789"}), KindValidation)
}
