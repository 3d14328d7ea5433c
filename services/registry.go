package services

import (
	"errors"
	"fmt"
	"sort"

	"cafe-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableRegistry reads and writes table rows. It decides nothing about which
// transitions are legal.
type TableRegistry struct {
	db *gorm.DB
}

func NewTableRegistry(db *gorm.DB) *TableRegistry {
	return &TableRegistry{db: db}
}

// Get returns an active table or NotFound.
func (r *TableRegistry) Get(id uint) (*models.Table, error) {
	var t models.Table
	if err := r.db.Where("id = ? AND is_deleted = ?", id, false).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("table %d not found", id)
		}
		return nil, fmt.Errorf("load table %d: %w", id, err)
	}
	return &t, nil
}

// Lock loads the given active tables in ascending id order, taking row locks
// where the store supports them.
func (r *TableRegistry) Lock(ids ...uint) (map[uint]*models.Table, error) {
	uniq := uniqueSorted(ids)
	q := r.db.Where("id IN ? AND is_deleted = ?", uniq, false).Order("id")
	if supportsRowLocks(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.Table
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("lock tables: %w", err)
	}
	out := make(map[uint]*models.Table, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	for _, id := range uniq {
		if _, ok := out[id]; !ok {
			return nil, NotFound("table %d not found", id)
		}
	}
	return out, nil
}

// SetStatus writes a new status if the table is still at the version the
// caller read; otherwise Conflict. t is updated in place.
func (r *TableRegistry) SetStatus(t *models.Table, status models.TableStatus) error {
	res := r.db.Model(&models.Table{}).
		Where("id = ? AND version = ? AND is_deleted = ?", t.ID, t.Version, false).
		Updates(map[string]any{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("set table %d status: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return Conflict("table %d was modified concurrently", t.ID)
	}
	t.Status = status
	t.Version++
	return nil
}

// ListActive lists active tables, optionally restricted to one status.
func (r *TableRegistry) ListActive(status models.TableStatus) ([]models.Table, error) {
	q := r.db.Where("is_deleted = ?", false)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.Table
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return rows, nil
}

func supportsRowLocks(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return true
	}
	return false
}

func uniqueSorted(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
