package models

import "time"

// ReservationKey is the seating identity: which table, served by whom, for which bill.
type ReservationKey struct {
	TableID    uint
	EmployeeID uint
	InvoiceID  uint
}

// Reservation links a table, an employee and an invoice for one seating.
// Date and time are kept as "2006-01-02" and "15:04" strings.
type Reservation struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	TableID         uint      `json:"table_id" gorm:"not null;index"`
	Table           *Table    `json:"-" gorm:"foreignKey:TableID"`
	EmployeeID      uint      `json:"employee_id" gorm:"not null;index"`
	Employee        *Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	InvoiceID       uint      `json:"invoice_id" gorm:"not null;index"`
	CustomerName    string    `json:"customer_name" gorm:"size:50"`
	CustomerPhone   string    `json:"customer_phone" gorm:"size:15"`
	ReservationDate string    `json:"reservation_date" gorm:"size:10;not null"`
	ReservationTime string    `json:"reservation_time" gorm:"size:5;not null"`
	IsDeleted       bool      `json:"-" gorm:"not null;default:false;index"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r Reservation) Key() ReservationKey {
	return ReservationKey{TableID: r.TableID, EmployeeID: r.EmployeeID, InvoiceID: r.InvoiceID}
}
