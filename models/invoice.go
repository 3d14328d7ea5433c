package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "UNPAID"
	InvoicePaid   InvoiceStatus = "PAID"
)

// Invoice is the bill of one seating. Total is derived from the active items
// and is rewritten whenever the items change.
type Invoice struct {
	ID     uint            `json:"id" gorm:"primaryKey"`
	Status InvoiceStatus   `json:"status" gorm:"type:varchar(10);not null;index"`
	Total  decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`

	PromotionID *uint      `json:"promotion_id"`
	Promotion   *Promotion `json:"promotion,omitempty" gorm:"foreignKey:PromotionID"`

	// Settlement
	Tendered   decimal.NullDecimal `json:"tendered" gorm:"type:numeric(12,2)"`
	Change     decimal.NullDecimal `json:"change" gorm:"column:change_due;type:numeric(12,2)"`
	PaidByID   *uint               `json:"paid_by_id"`
	PaidByName string              `json:"paid_by_name" gorm:"size:100"`
	PaidAt     *time.Time          `json:"paid_at"`

	IsDeleted bool `json:"-" gorm:"not null;default:false;index"`

	Items        []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	Reservations []Reservation `json:"reservations,omitempty" gorm:"foreignKey:InvoiceID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceItemKey identifies a line: at most one active row per key.
type InvoiceItemKey struct {
	InvoiceID  uint
	MenuItemID uint
}

// InvoiceItem is one ordered menu item with the price frozen when it was added.
type InvoiceItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	InvoiceID  uint            `json:"invoice_id" gorm:"not null;index"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null;index"`
	MenuItem   *MenuItem       `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	IsDeleted  bool            `json:"-" gorm:"not null;default:false;index"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (i InvoiceItem) Key() InvoiceItemKey {
	return InvoiceItemKey{InvoiceID: i.InvoiceID, MenuItemID: i.MenuItemID}
}

// LineTotal is price x quantity.
func (i InvoiceItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
