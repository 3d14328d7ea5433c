package models

import (
	"time"

	"gorm.io/datatypes"
)

// OperationLog is an append-only record of every committed floor operation.
type OperationLog struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Action     string         `json:"action" gorm:"size:40;not null;index"`
	EmployeeID *uint          `json:"employee_id"`
	InvoiceID  *uint          `json:"invoice_id" gorm:"index"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}
