package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"cafe-backend/database"
	"cafe-backend/events"
	"cafe-backend/models"
	"cafe-backend/notify"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.BookingNotice
}

func (n *recordingNotifier) NotifyBooking(_ context.Context, b notify.BookingNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, b)
	return nil
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	engine   *Engine
	events   *events.Recorder
	notifier *recordingNotifier
	clock    *testClock

	anna, ben         models.Employee
	coffee, tea, cake models.MenuItem
	t1, t2, t3, t4    uint
	actor             Actor
}

const (
	coffeePrice = 20
	teaPrice    = 15
	cakePrice   = 35
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		events:   &events.Recorder{},
		notifier: &recordingNotifier{},
		clock:    &testClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
	}

	f.anna = models.Employee{Username: "anna", FullName: "Anna Weber", Password: []byte("x")}
	f.ben = models.Employee{Username: "ben", FullName: "Ben Kraus", Password: []byte("x")}
	f.mustCreate(&f.anna)
	f.mustCreate(&f.ben)

	f.coffee = models.MenuItem{Name: "Coffee", Price: decimal.NewFromInt(coffeePrice), Active: true}
	f.tea = models.MenuItem{Name: "Tea", Price: decimal.NewFromInt(teaPrice), Active: true}
	f.cake = models.MenuItem{Name: "Cake", Price: decimal.NewFromInt(cakePrice), Active: true}
	f.mustCreate(&f.coffee)
	f.mustCreate(&f.tea)
	f.mustCreate(&f.cake)

	ids := make([]uint, 4)
	for i := range ids {
		tbl := models.Table{Name: "Table " + string(rune('1'+i)), Status: models.TableAvailable}
		f.mustCreate(&tbl)
		ids[i] = tbl.ID
	}
	f.t1, f.t2, f.t3, f.t4 = ids[0], ids[1], ids[2], ids[3]

	f.actor = Actor{EmployeeID: f.anna.ID}
	f.engine = NewEngine(db, Options{
		Publisher:         f.events,
		Notifier:          f.notifier,
		Now:               f.clock.Now,
		DefaultEmployeeID: f.anna.ID,
		ReleaseDelay:      5 * time.Second,
	})
	return f
}

func (f *fixture) mustCreate(v any) {
	f.t.Helper()
	if err := f.db.Create(v).Error; err != nil {
		f.t.Fatalf("create %T: %v", v, err)
	}
}

func (f *fixture) table(id uint) models.Table {
	f.t.Helper()
	var t models.Table
	if err := f.db.First(&t, id).Error; err != nil {
		f.t.Fatalf("load table %d: %v", id, err)
	}
	return t
}

func (f *fixture) openInvoice(tableID uint) *models.Invoice {
	f.t.Helper()
	inv, err := NewLedger(f.db).FindOpenInvoice(tableID)
	if err != nil {
		f.t.Fatalf("find open invoice: %v", err)
	}
	return inv
}

func (f *fixture) invoice(id uint) models.Invoice {
	f.t.Helper()
	var inv models.Invoice
	if err := f.db.First(&inv, id).Error; err != nil {
		f.t.Fatalf("load invoice %d: %v", id, err)
	}
	return inv
}

// quantities maps menu item id to active quantity on the table's open invoice.
func (f *fixture) quantities(tableID uint) map[uint]int {
	f.t.Helper()
	out := map[uint]int{}
	inv := f.openInvoice(tableID)
	if inv == nil {
		return out
	}
	lines, err := NewLedger(f.db).ActiveLines(inv.ID)
	if err != nil {
		f.t.Fatalf("lines: %v", err)
	}
	for _, l := range lines {
		out[l.MenuItemID] = l.Quantity
	}
	return out
}

func (f *fixture) activeReservations(invoiceID uint) []models.Reservation {
	f.t.Helper()
	rows, err := NewReservationLinker(f.db).ActiveForInvoice(invoiceID)
	if err != nil {
		f.t.Fatalf("reservations: %v", err)
	}
	return rows
}

// seat puts items on a table through AddItems.
func (f *fixture) seat(tableID uint, items ...ItemQuantity) *TableState {
	f.t.Helper()
	st, err := f.engine.AddItems(f.ctx, f.actor, AddItemsRequest{TableID: tableID, Items: items})
	if err != nil {
		f.t.Fatalf("add items to table %d: %v", tableID, err)
	}
	return st
}

func qty(item models.MenuItem, n int) ItemQuantity {
	return ItemQuantity{MenuItemID: item.ID, Quantity: n}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s, got %q (%v)", kind, got, err)
	}
}

func wantStatus(t *testing.T, f *fixture, tableID uint, want models.TableStatus) {
	t.Helper()
	if got := f.table(tableID).Status; got != want {
		t.Fatalf("table %d status = %s, want %s", tableID, got, want)
	}
}

// checkInvariants asserts the floor-wide consistency rules.
func (f *fixture) checkInvariants() {
	f.t.Helper()
	var tables []models.Table
	if err := f.db.Find(&tables).Error; err != nil {
		f.t.Fatal(err)
	}
	for _, tbl := range tables {
		var open int64
		linked := f.db.Model(&models.Reservation{}).Select("invoice_id").
			Where("table_id = ? AND is_deleted = ?", tbl.ID, false)
		if err := f.db.Model(&models.Invoice{}).
			Where("id IN (?) AND is_deleted = ? AND status = ?", linked, false, models.InvoiceUnpaid).
			Count(&open).Error; err != nil {
			f.t.Fatal(err)
		}
		if open > 1 {
			f.t.Errorf("table %d has %d open invoices", tbl.ID, open)
		}
		if tbl.Status == models.TableAvailable && open != 0 {
			f.t.Errorf("available table %d still has an open invoice", tbl.ID)
		}
	}

	var invoices []models.Invoice
	if err := f.db.Where("is_deleted = ? AND status = ?", false, models.InvoiceUnpaid).Find(&invoices).Error; err != nil {
		f.t.Fatal(err)
	}
	for _, inv := range invoices {
		lines, err := NewLedger(f.db).ActiveLines(inv.ID)
		if err != nil {
			f.t.Fatal(err)
		}
		seen := map[uint]bool{}
		for _, l := range lines {
			if seen[l.MenuItemID] {
				f.t.Errorf("invoice %d has two active lines for item %d", inv.ID, l.MenuItemID)
			}
			seen[l.MenuItemID] = true
		}
		if !inv.Total.Equal(sumLines(lines)) {
			f.t.Errorf("invoice %d stored total %s, lines sum %s", inv.ID, inv.Total, sumLines(lines))
		}
	}

	var orphans int64
	if err := f.db.Model(&models.Reservation{}).
		Joins("JOIN invoices ON invoices.id = reservations.invoice_id").
		Where("reservations.is_deleted = ? AND invoices.is_deleted = ?", false, true).
		Count(&orphans).Error; err != nil {
		f.t.Fatal(err)
	}
	if orphans != 0 {
		f.t.Errorf("%d active reservations point at deleted invoices", orphans)
	}
}
