package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is referenced by invoices; discount arithmetic is not applied to totals.
type Promotion struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Name            string          `json:"name" gorm:"size:100;not null"`
	Description     string          `json:"description"`
	DiscountPercent decimal.Decimal `json:"discount_percent" gorm:"type:numeric(5,2);not null"`
	StartsAt        time.Time       `json:"starts_at"`
	EndsAt          time.Time       `json:"ends_at"`
	IsDeleted       bool            `json:"-" gorm:"not null;default:false"`
}

func (p *Promotion) ActiveAt(t time.Time) bool {
	return !p.IsDeleted && !t.Before(p.StartsAt) && t.Before(p.EndsAt)
}
