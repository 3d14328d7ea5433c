package services

import (
	"errors"
	"fmt"
	"time"

	"cafe-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger owns invoices and their line items.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// FindOpenInvoice returns the most recent active UNPAID invoice reachable
// through an active reservation on the table, or nil.
func (l *Ledger) FindOpenInvoice(tableID uint) (*models.Invoice, error) {
	linked := l.db.Model(&models.Reservation{}).
		Select("invoice_id").
		Where("table_id = ? AND is_deleted = ?", tableID, false)

	var inv models.Invoice
	err := l.db.Where("id IN (?) AND is_deleted = ? AND status = ?", linked, false, models.InvoiceUnpaid).
		Order("created_at DESC, id DESC").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open invoice for table %d: %w", tableID, err)
	}
	return &inv, nil
}

func (l *Ledger) Invoice(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := l.db.Where("id = ? AND is_deleted = ?", id, false).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("invoice %d not found", id)
		}
		return nil, fmt.Errorf("load invoice %d: %w", id, err)
	}
	return &inv, nil
}

// CreateInvoice opens a new UNPAID invoice with a zero total.
func (l *Ledger) CreateInvoice() (*models.Invoice, error) {
	inv := models.Invoice{Status: models.InvoiceUnpaid, Total: decimal.Zero}
	if err := l.db.Omit(clause.Associations).Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return &inv, nil
}

// ActiveLines returns the invoice's active line items ordered by id.
func (l *Ledger) ActiveLines(invoiceID uint) ([]models.InvoiceItem, error) {
	var lines []models.InvoiceItem
	if err := l.db.Where("invoice_id = ? AND is_deleted = ?", invoiceID, false).
		Order("id").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("load lines for invoice %d: %w", invoiceID, err)
	}
	return lines, nil
}

func (l *Ledger) activeLine(key models.InvoiceItemKey) (*models.InvoiceItem, error) {
	var line models.InvoiceItem
	err := l.db.Where("invoice_id = ? AND menu_item_id = ? AND is_deleted = ?", key.InvoiceID, key.MenuItemID, false).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load line %d/%d: %w", key.InvoiceID, key.MenuItemID, err)
	}
	return &line, nil
}

// AddOrIncrementLine adds qty to the active line for (invoice, item), or
// inserts one at unitPrice. An existing line keeps its own frozen price.
func (l *Ledger) AddOrIncrementLine(invoiceID, menuItemID uint, qty int, unitPrice decimal.Decimal) (*models.InvoiceItem, error) {
	if qty <= 0 {
		return nil, Validation("quantity for menu item %d must be positive", menuItemID)
	}
	key := models.InvoiceItemKey{InvoiceID: invoiceID, MenuItemID: menuItemID}
	line, err := l.activeLine(key)
	if err != nil {
		return nil, err
	}
	if line != nil {
		next := line.Quantity + qty
		if err := l.db.Model(&models.InvoiceItem{}).Where("id = ?", line.ID).
			Update("quantity", next).Error; err != nil {
			return nil, fmt.Errorf("increment line %d: %w", line.ID, err)
		}
		line.Quantity = next
		return line, nil
	}

	line = &models.InvoiceItem{
		InvoiceID:  invoiceID,
		MenuItemID: menuItemID,
		Quantity:   qty,
		UnitPrice:  unitPrice,
	}
	if err := l.db.Omit(clause.Associations).Create(line).Error; err != nil {
		return nil, fmt.Errorf("insert line %d/%d: %w", invoiceID, menuItemID, err)
	}
	return line, nil
}

// DecrementLine removes qty from the active line; a line driven to zero is
// tombstoned. Fails with InsufficientQuantity when qty exceeds what is active.
func (l *Ledger) DecrementLine(invoiceID, menuItemID uint, qty int) (*models.InvoiceItem, error) {
	if qty <= 0 {
		return nil, Validation("quantity for menu item %d must be positive", menuItemID)
	}
	line, err := l.activeLine(models.InvoiceItemKey{InvoiceID: invoiceID, MenuItemID: menuItemID})
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, InsufficientQuantity("menu item %d is not on invoice %d", menuItemID, invoiceID)
	}
	if qty > line.Quantity {
		return nil, InsufficientQuantity("menu item %d: requested %d, only %d on invoice %d", menuItemID, qty, line.Quantity, invoiceID)
	}

	rest := line.Quantity - qty
	if err := l.db.Model(&models.InvoiceItem{}).Where("id = ?", line.ID).
		Updates(map[string]any{"quantity": rest, "is_deleted": rest == 0}).Error; err != nil {
		return nil, fmt.Errorf("decrement line %d: %w", line.ID, err)
	}
	line.Quantity, line.IsDeleted = rest, rest == 0
	return line, nil
}

// RecomputeTotal sums price x quantity over the active lines and stores it.
func (l *Ledger) RecomputeTotal(invoiceID uint) (decimal.Decimal, error) {
	lines, err := l.ActiveLines(invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	total := sumLines(lines)
	if err := l.db.Model(&models.Invoice{}).Where("id = ?", invoiceID).Update("total", total).Error; err != nil {
		return decimal.Zero, fmt.Errorf("store total for invoice %d: %w", invoiceID, err)
	}
	return total, nil
}

// SoftDeleteInvoice tombstones the invoice and every active line, zeroing the total.
func (l *Ledger) SoftDeleteInvoice(invoiceID uint) error {
	if err := l.db.Model(&models.InvoiceItem{}).
		Where("invoice_id = ? AND is_deleted = ?", invoiceID, false).
		Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("tombstone lines of invoice %d: %w", invoiceID, err)
	}
	if err := l.db.Model(&models.Invoice{}).Where("id = ?", invoiceID).
		Updates(map[string]any{"is_deleted": true, "total": decimal.Zero}).Error; err != nil {
		return fmt.Errorf("tombstone invoice %d: %w", invoiceID, err)
	}
	return nil
}

// Payer is the payer-of-record for a settled invoice.
type Payer struct {
	ID   *uint
	Name string
}

// MarkPaid closes the invoice with the given settlement figures.
func (l *Ledger) MarkPaid(inv *models.Invoice, total, tendered, change decimal.Decimal, payer Payer, at time.Time) error {
	res := l.db.Model(&models.Invoice{}).
		Where("id = ? AND status = ? AND is_deleted = ?", inv.ID, models.InvoiceUnpaid, false).
		Updates(map[string]any{
			"status":       models.InvoicePaid,
			"total":        total,
			"tendered":     tendered,
			"change_due":   change,
			"paid_by_id":   payer.ID,
			"paid_by_name": payer.Name,
			"paid_at":      at,
		})
	if res.Error != nil {
		return fmt.Errorf("mark invoice %d paid: %w", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return Conflict("invoice %d is no longer open", inv.ID)
	}
	inv.Status = models.InvoicePaid
	inv.Total = total
	inv.Tendered = decimal.NewNullDecimal(tendered)
	inv.Change = decimal.NewNullDecimal(change)
	inv.PaidByID = payer.ID
	inv.PaidByName = payer.Name
	inv.PaidAt = &at
	return nil
}

// SetPromotion attaches a promotion reference; totals are untouched.
func (l *Ledger) SetPromotion(inv *models.Invoice, promotionID uint) error {
	if err := l.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("promotion_id", promotionID).Error; err != nil {
		return fmt.Errorf("set promotion on invoice %d: %w", inv.ID, err)
	}
	inv.PromotionID = &promotionID
	return nil
}

func sumLines(lines []models.InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total.Round(2)
}
