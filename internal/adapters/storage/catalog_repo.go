package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetCVE retrieves a CVE by ID.
func (a *SQLiteAdapter) GetCVE(ctx context.Context, id string) (*domain.CVE, error) {
	var model CVEModel
	err := a.conn(ctx).Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cve %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return cveToDomain(model), nil
}

// UpsertCVEDetails inserts a CVE or overwrites its descriptive fields.
// The kev column is deliberately absent from the update set.
func (a *SQLiteAdapter) UpsertCVEDetails(ctx context.Context, cve domain.CVE) error {
	model := cveToModel(cve)
	return a.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "cvss", "severity", "published", "updated_at"}),
	}).Create(&model).Error
}

// ReplaceCPERanges swaps the full range set of a CVE.
func (a *SQLiteAdapter) ReplaceCPERanges(ctx context.Context, cveID string, ranges []domain.CPERange) error {
	db := a.conn(ctx)
	if err := db.Where("cve_id = ?", cveID).Delete(&CPERangeModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete ranges of %s: %w", cveID, err)
	}
	if len(ranges) == 0 {
		return nil
	}
	models := make([]CPERangeModel, len(ranges))
	for i, r := range ranges {
		models[i] = rangeToModel(cveID, r)
	}
	if err := db.CreateInBatches(models, 100).Error; err != nil {
		return fmt.Errorf("failed to insert ranges of %s: %w", cveID, err)
	}
	return nil
}

// MarkKEV sets the known-exploited flag, creating a bare CVE when absent.
func (a *SQLiteAdapter) MarkKEV(ctx context.Context, cveID string) (bool, error) {
	db := a.conn(ctx)

	var model CVEModel
	err := db.Select("id", "kev").Where("id = ?", cveID).Take(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&CVEModel{ID: cveID, KEV: true}).Error; err != nil {
			return false, fmt.Errorf("failed to create %s: %w", cveID, err)
		}
		return true, nil
	case err != nil:
		return false, err
	case model.KEV:
		return false, nil
	}

	if err := db.Model(&CVEModel{}).Where("id = ?", cveID).Update("kev", true).Error; err != nil {
		return false, fmt.Errorf("failed to flag %s: %w", cveID, err)
	}
	return true, nil
}

// ListCPERanges returns every range of a CVE in insertion order.
func (a *SQLiteAdapter) ListCPERanges(ctx context.Context, cveID string) ([]domain.CPERange, error) {
	var models []CPERangeModel
	if err := a.conn(ctx).Where("cve_id = ?", cveID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return rangesToDomain(models), nil
}

// FindRangesByVendorProduct finds ranges with exactly the given vendor and product.
func (a *SQLiteAdapter) FindRangesByVendorProduct(ctx context.Context, vendor, product string, limit int) ([]domain.CPERange, error) {
	var models []CPERangeModel
	err := a.conn(ctx).
		Where("LOWER(vendor) = LOWER(?) AND LOWER(product) = LOWER(?)", vendor, product).
		Order("id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rangesToDomain(models), nil
}

// SearchRanges finds ranges whose product contains any product token or
// whose vendor contains any vendor token.
func (a *SQLiteAdapter) SearchRanges(ctx context.Context, productTokens, vendorTokens []string, limit int) ([]domain.CPERange, error) {
	if len(productTokens) == 0 && len(vendorTokens) == 0 {
		return nil, nil
	}

	// Build OR conditions for LIKE matching
	var conditions []string
	var args []interface{}
	for _, tok := range productTokens {
		conditions = append(conditions, "LOWER(product) LIKE ?")
		args = append(args, "%"+strings.ToLower(tok)+"%")
	}
	for _, tok := range vendorTokens {
		conditions = append(conditions, "LOWER(vendor) LIKE ?")
		args = append(args, "%"+strings.ToLower(tok)+"%")
	}

	var models []CPERangeModel
	err := a.conn(ctx).
		Where(strings.Join(conditions, " OR "), args...).
		Order("id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return rangesToDomain(models), nil
}
