package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cafe-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Catalog resolves menu items. Consulted only when new lines are added.
type Catalog interface {
	Exists(ctx context.Context, menuItemID uint) (bool, error)
	PriceOf(ctx context.Context, menuItemID uint) (decimal.Decimal, error)
}

// PromotionLookup resolves a promotion that is active at a given instant.
type PromotionLookup interface {
	Active(ctx context.Context, promotionID uint, at time.Time) (*models.Promotion, error)
}

type gormCatalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) Catalog {
	return &gormCatalog{db: db}
}

func (c *gormCatalog) Exists(ctx context.Context, menuItemID uint) (bool, error) {
	var n int64
	if err := c.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("id = ? AND active = ?", menuItemID, true).Count(&n).Error; err != nil {
		return false, fmt.Errorf("lookup menu item %d: %w", menuItemID, err)
	}
	return n > 0, nil
}

func (c *gormCatalog) PriceOf(ctx context.Context, menuItemID uint) (decimal.Decimal, error) {
	var item models.MenuItem
	err := c.db.WithContext(ctx).Where("id = ? AND active = ?", menuItemID, true).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, NotFound("menu item %d not found", menuItemID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("price of menu item %d: %w", menuItemID, err)
	}
	return item.Price, nil
}

type gormPromotions struct {
	db *gorm.DB
}

func NewPromotionLookup(db *gorm.DB) PromotionLookup {
	return &gormPromotions{db: db}
}

func (p *gormPromotions) Active(ctx context.Context, promotionID uint, at time.Time) (*models.Promotion, error) {
	var promo models.Promotion
	err := p.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", promotionID, false).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("promotion %d not found", promotionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load promotion %d: %w", promotionID, err)
	}
	if !promo.ActiveAt(at) {
		return nil, NotFound("promotion %d is not active", promotionID)
	}
	return &promo, nil
}
