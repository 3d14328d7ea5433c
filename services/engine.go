package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cafe-backend/events"
	"cafe-backend/logger"
	"cafe-backend/models"
	"cafe-backend/notify"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor is the employee on whose behalf an operation runs.
type Actor struct {
	EmployeeID uint
}

type Options struct {
	Catalog    Catalog
	Promotions PromotionLookup
	Publisher  events.Publisher
	Notifier   notify.BookingNotifier
	Logger     *slog.Logger
	Now        func() time.Time

	// DefaultEmployeeID serves seatings when the actor carries no employee.
	DefaultEmployeeID uint
	// ReleaseDelay is how long a paid, not-freed table stays OCCUPIED.
	ReleaseDelay time.Duration
}

// Engine runs the floor operations. Each operation is one transaction.
type Engine struct {
	db         *gorm.DB
	catalog    Catalog
	promotions PromotionLookup
	publisher  events.Publisher
	notifier   notify.BookingNotifier
	releases   *ReleaseScheduler
	log        *slog.Logger
	now        func() time.Time

	defaultEmployeeID uint
	releaseDelay      time.Duration
}

func NewEngine(db *gorm.DB, opts Options) *Engine {
	e := &Engine{
		db:                db,
		catalog:           opts.Catalog,
		promotions:        opts.Promotions,
		publisher:         opts.Publisher,
		notifier:          opts.Notifier,
		log:               opts.Logger,
		now:               opts.Now,
		defaultEmployeeID: opts.DefaultEmployeeID,
		releaseDelay:      opts.ReleaseDelay,
	}
	if e.catalog == nil {
		e.catalog = NewCatalog(db)
	}
	if e.promotions == nil {
		e.promotions = NewPromotionLookup(db)
	}
	if e.publisher == nil {
		e.publisher = events.Noop{}
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{}
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.defaultEmployeeID == 0 {
		e.defaultEmployeeID = 1
	}
	e.releases = NewReleaseScheduler(db, e.publisher, e.log, e.now)
	return e
}

// Releases exposes the deferred release queue fed by payments.
func (e *Engine) Releases() *ReleaseScheduler {
	return e.releases
}

// unit is the per-transaction view of the registries.
type unit struct {
	tx           *gorm.DB
	tables       *TableRegistry
	ledger       *Ledger
	reservations *ReservationLinker
	now          time.Time

	events  []events.Event
	notices []notify.BookingNotice
}

func newUnit(tx *gorm.DB, now time.Time) *unit {
	return &unit{
		tx:           tx,
		tables:       NewTableRegistry(tx),
		ledger:       NewLedger(tx),
		reservations: NewReservationLinker(tx),
		now:          now,
	}
}

// record writes the audit row and queues the matching event for after commit.
func (u *unit) record(action events.Type, employeeID uint, tableIDs []uint, invoiceID uint, payload any) error {
	body, err := json.Marshal(struct {
		TableIDs []uint `json:"table_ids"`
		Detail   any    `json:"detail,omitempty"`
	}{TableIDs: tableIDs, Detail: payload})
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", action, err)
	}
	entry := models.OperationLog{
		Action:    string(action),
		Payload:   datatypes.JSON(body),
		CreatedAt: u.now,
	}
	if employeeID != 0 {
		entry.EmployeeID = &employeeID
	}
	if invoiceID != 0 {
		entry.InvoiceID = &invoiceID
	}
	if err := u.tx.Omit(clause.Associations).Create(&entry).Error; err != nil {
		return fmt.Errorf("write operation log: %w", err)
	}
	u.events = append(u.events, events.Event{
		Type:       action,
		TableIDs:   tableIDs,
		InvoiceID:  invoiceID,
		EmployeeID: employeeID,
		At:         u.now,
	})
	return nil
}

// employee loads an active employee or NotFound.
func (u *unit) employee(id uint) (*models.Employee, error) {
	var emp models.Employee
	err := u.tx.Where("id = ? AND is_deleted = ?", id, false).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("employee %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load employee %d: %w", id, err)
	}
	return &emp, nil
}

// openSeating creates a fresh invoice and its reservation on the table.
func (u *unit) openSeating(tableID, employeeID uint, customer Customer) (*models.Invoice, *models.Reservation, error) {
	inv, err := u.ledger.CreateInvoice()
	if err != nil {
		return nil, nil, err
	}
	res, err := u.reservations.Attach(
		models.ReservationKey{TableID: tableID, EmployeeID: employeeID, InvoiceID: inv.ID},
		customer,
		Slot{Date: u.now.Format(dateLayout), Time: u.now.Format(timeLayout)},
	)
	if err != nil {
		return nil, nil, err
	}
	return inv, res, nil
}

// closeSeating tombstones the invoice, its lines and its reservations.
func (u *unit) closeSeating(invoiceID uint) error {
	if _, err := u.reservations.Detach(invoiceID); err != nil {
		return err
	}
	return u.ledger.SoftDeleteInvoice(invoiceID)
}

// serverFor picks the employee who serves seatings created for the actor.
func (e *Engine) serverFor(actor Actor) uint {
	if actor.EmployeeID != 0 {
		return actor.EmployeeID
	}
	return e.defaultEmployeeID
}

// transact runs fn in one transaction and returns the committed unit.
func transact(ctx context.Context, db *gorm.DB, now time.Time, fn func(u *unit) error) (*unit, error) {
	var committed *unit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := newUnit(tx, now)
		if err := fn(u); err != nil {
			return err
		}
		committed = u
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return committed, nil
}

// inTx runs one engine operation and fans out its side effects after commit.
func (e *Engine) inTx(ctx context.Context, op string, fn func(u *unit) error) error {
	u, err := transact(ctx, e.db, e.now(), fn)
	if err != nil {
		if kind := KindOf(err); kind != "" {
			e.log.Info("operation rejected", "action", op, "kind", string(kind), "reason", err.Error())
		} else {
			e.log.Error("operation failed", "action", op, "error", err)
		}
		return err
	}
	e.log.Debug("operation committed", "action", op)
	e.afterCommit(ctx, u)
	return nil
}

func (e *Engine) afterCommit(ctx context.Context, u *unit) {
	publishAll(ctx, e.publisher, e.log, u.events)
	for _, n := range u.notices {
		if err := e.notifier.NotifyBooking(ctx, n); err != nil {
			e.log.Warn("booking notification failed", "table", n.TableName, "error", err)
		}
	}
}

func publishAll(ctx context.Context, p events.Publisher, log *slog.Logger, evs []events.Event) {
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			log.Warn("event publish failed", "type", string(ev.Type), "error", err)
		}
	}
}

// TableState is a table with its open invoice and active lines, if any.
type TableState struct {
	Table   models.Table         `json:"table"`
	Invoice *models.Invoice      `json:"invoice,omitempty"`
	Lines   []models.InvoiceItem `json:"lines,omitempty"`
}

// TableDetail adds the latest active seating to TableState.
type TableDetail struct {
	TableState
	Reservation *models.Reservation `json:"reservation,omitempty"`
}

func (u *unit) state(t *models.Table) (*TableState, error) {
	st := &TableState{Table: *t}
	inv, err := u.ledger.FindOpenInvoice(t.ID)
	if err != nil || inv == nil {
		return st, err
	}
	if inv.Total, err = u.ledger.RecomputeTotal(inv.ID); err != nil {
		return nil, err
	}
	lines, err := u.ledger.ActiveLines(inv.ID)
	if err != nil {
		return nil, err
	}
	st.Invoice, st.Lines = inv, lines
	return st, nil
}

// ListTables lists active tables, optionally filtered by status.
func (e *Engine) ListTables(ctx context.Context, status models.TableStatus) ([]models.Table, error) {
	if status != "" && !status.Valid() {
		return nil, Validation("unknown table status %q", status)
	}
	return NewTableRegistry(e.db.WithContext(ctx)).ListActive(status)
}

// GetTable returns a table with its open invoice, lines and latest seating.
// The stored total is refreshed from the lines before it is shown.
func (e *Engine) GetTable(ctx context.Context, id uint) (*TableDetail, error) {
	var detail *TableDetail
	_, err := transact(ctx, e.db, e.now(), func(u *unit) error {
		t, err := u.tables.Get(id)
		if err != nil {
			return err
		}
		st, err := u.state(t)
		if err != nil {
			return err
		}
		detail = &TableDetail{TableState: *st}
		if st.Invoice != nil {
			detail.Reservation, err = u.reservations.LatestForInvoice(st.Invoice.ID)
		} else {
			detail.Reservation, err = u.reservations.LatestFor(id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}
