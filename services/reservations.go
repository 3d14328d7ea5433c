package services

import (
	"errors"
	"fmt"

	"cafe-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationLinker owns the table/employee/invoice association.
type ReservationLinker struct {
	db *gorm.DB
}

func NewReservationLinker(db *gorm.DB) *ReservationLinker {
	return &ReservationLinker{db: db}
}

// Slot is a reservation date ("2006-01-02") and time ("15:04").
type Slot struct {
	Date string
	Time string
}

// Attach creates one active reservation for key.
func (r *ReservationLinker) Attach(key models.ReservationKey, customer Customer, when Slot) (*models.Reservation, error) {
	res := models.Reservation{
		TableID:         key.TableID,
		EmployeeID:      key.EmployeeID,
		InvoiceID:       key.InvoiceID,
		CustomerName:    customer.Name,
		CustomerPhone:   customer.Phone,
		ReservationDate: when.Date,
		ReservationTime: when.Time,
	}
	if err := r.db.Omit(clause.Associations).Create(&res).Error; err != nil {
		return nil, fmt.Errorf("attach reservation %+v: %w", key, err)
	}
	return &res, nil
}

// Detach tombstones every active reservation of the invoice.
func (r *ReservationLinker) Detach(invoiceID uint) (int64, error) {
	res := r.db.Model(&models.Reservation{}).
		Where("invoice_id = ? AND is_deleted = ?", invoiceID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return 0, fmt.Errorf("detach reservations of invoice %d: %w", invoiceID, res.Error)
	}
	return res.RowsAffected, nil
}

// LatestFor returns the most recent active reservation on the table, or nil.
func (r *ReservationLinker) LatestFor(tableID uint) (*models.Reservation, error) {
	return r.latest(r.db.Where("table_id = ?", tableID))
}

// LatestForInvoice returns the most recent active reservation of the invoice, or nil.
func (r *ReservationLinker) LatestForInvoice(invoiceID uint) (*models.Reservation, error) {
	return r.latest(r.db.Where("invoice_id = ?", invoiceID))
}

func (r *ReservationLinker) latest(scope *gorm.DB) (*models.Reservation, error) {
	var res models.Reservation
	err := scope.Preload("Employee").
		Where("is_deleted = ?", false).
		Order("reservation_date DESC, reservation_time DESC, id DESC").
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest reservation: %w", err)
	}
	return &res, nil
}

// ActiveForInvoice lists the invoice's active reservations ordered by id.
func (r *ReservationLinker) ActiveForInvoice(invoiceID uint) ([]models.Reservation, error) {
	var rows []models.Reservation
	if err := r.db.Where("invoice_id = ? AND is_deleted = ?", invoiceID, false).
		Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reservations of invoice %d: %w", invoiceID, err)
	}
	return rows, nil
}

// Move re-points a reservation at another table. The old row is tombstoned
// and a new one is created so history keeps the original seating.
func (r *ReservationLinker) Move(res models.Reservation, toTableID uint) (*models.Reservation, error) {
	if err := r.db.Model(&models.Reservation{}).Where("id = ?", res.ID).
		Update("is_deleted", true).Error; err != nil {
		return nil, fmt.Errorf("tombstone reservation %d: %w", res.ID, err)
	}
	key := res.Key()
	key.TableID = toTableID
	return r.Attach(key, Customer{Name: res.CustomerName, Phone: res.CustomerPhone},
		Slot{Date: res.ReservationDate, Time: res.ReservationTime})
}

// Rename overwrites the customer identity on every active reservation of the invoice.
func (r *ReservationLinker) Rename(invoiceID uint, customer Customer) error {
	if err := r.db.Model(&models.Reservation{}).
		Where("invoice_id = ? AND is_deleted = ?", invoiceID, false).
		Updates(map[string]any{
			"customer_name":  customer.Name,
			"customer_phone": customer.Phone,
		}).Error; err != nil {
		return fmt.Errorf("rename reservations of invoice %d: %w", invoiceID, err)
	}
	return nil
}

// Clashes reports whether an active reservation already holds the slot.
func (r *ReservationLinker) Clashes(tableID uint, when Slot) (bool, error) {
	var n int64
	if err := r.db.Model(&models.Reservation{}).
		Where("table_id = ? AND reservation_date = ? AND reservation_time = ? AND is_deleted = ?",
			tableID, when.Date, when.Time, false).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check reservation slot: %w", err)
	}
	return n > 0, nil
}
