package models

import "time"

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
)

// Table is a physical table on the floor. Version increases on every status
// change so stale writers (including deferred releases) can be detected.
type Table struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	Name      string      `json:"name" gorm:"size:50;not null"`
	Status    TableStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	Version   int         `json:"version" gorm:"not null"`
	IsDeleted bool        `json:"-" gorm:"not null;default:false;index"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved:
		return true
	}
	return false
}
