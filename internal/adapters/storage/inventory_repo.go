package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// GetAsset retrieves an asset by ID.
func (a *SQLiteAdapter) GetAsset(ctx context.Context, id uint) (*domain.Asset, error) {
	var model AssetModel
	err := a.conn(ctx).Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("asset %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	asset := assetToDomain(model)
	return &asset, nil
}

// ListAssets returns every asset ordered by ID.
func (a *SQLiteAdapter) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	var models []AssetModel
	if err := a.conn(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	assets := make([]domain.Asset, len(models))
	for i, m := range models {
		assets[i] = assetToDomain(m)
	}
	return assets, nil
}

// ListAssetIDs returns every asset ID in ascending order.
func (a *SQLiteAdapter) ListAssetIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := a.conn(ctx).Model(&AssetModel{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListSoftware returns the software rows of an asset in insertion order.
func (a *SQLiteAdapter) ListSoftware(ctx context.Context, assetID uint) ([]domain.Software, error) {
	var models []SoftwareModel
	if err := a.conn(ctx).Where("asset_id = ?", assetID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Software, len(models))
	for i, m := range models {
		out[i] = softwareToDomain(m)
	}
	return out, nil
}

// ListSoftwareByName returns at most limit software rows of an asset ordered by name.
func (a *SQLiteAdapter) ListSoftwareByName(ctx context.Context, assetID uint, limit int) ([]domain.Software, error) {
	var models []SoftwareModel
	err := a.conn(ctx).Where("asset_id = ?", assetID).Order("name").Order("id").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Software, len(models))
	for i, m := range models {
		out[i] = softwareToDomain(m)
	}
	return out, nil
}

// ListServices returns the services of an asset ordered by port.
func (a *SQLiteAdapter) ListServices(ctx context.Context, assetID uint) ([]domain.NetworkService, error) {
	var models []ServiceModel
	if err := a.conn(ctx).Where("asset_id = ?", assetID).Order("local_port").Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.NetworkService, len(models))
	for i, m := range models {
		out[i] = serviceToDomain(m)
	}
	return out, nil
}

// UpsertAsset creates the asset or updates the OS fields of the asset
// with the same hostname. asset is updated with the stored identity.
func (a *SQLiteAdapter) UpsertAsset(ctx context.Context, asset *domain.Asset) error {
	db := a.conn(ctx)

	var model AssetModel
	err := db.Where("hostname = ?", asset.Hostname).Take(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model = AssetModel{Hostname: asset.Hostname}
	case err != nil:
		return err
	}

	model.OSName = asset.OSName
	model.OSVersion = asset.OSVersion
	model.OSBuild = asset.OSBuild
	model.UpdatedAt = time.Now().UTC()
	if err := db.Save(&model).Error; err != nil {
		return fmt.Errorf("failed to save asset %s: %w", asset.Hostname, err)
	}

	*asset = assetToDomain(model)
	return nil
}

// ReplaceSoftware swaps the software snapshot of an asset. Findings that
// referenced removed rows keep their data with a nil software reference.
func (a *SQLiteAdapter) ReplaceSoftware(ctx context.Context, assetID uint, items []domain.Software) error {
	db := a.conn(ctx)

	if err := db.Model(&FindingModel{}).Where("asset_id = ?", assetID).Update("software_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach findings: %w", err)
	}
	if err := db.Where("asset_id = ?", assetID).Delete(&SoftwareModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete software: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	models := make([]SoftwareModel, len(items))
	for i, s := range items {
		models[i] = softwareToModel(assetID, s)
	}
	if err := db.CreateInBatches(models, 100).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate software entry: %w", domain.ErrConflict)
		}
		return fmt.Errorf("failed to insert software: %w", err)
	}
	return nil
}

// ReplaceServices swaps the service snapshot of an asset.
func (a *SQLiteAdapter) ReplaceServices(ctx context.Context, assetID uint, items []domain.NetworkService) error {
	db := a.conn(ctx)

	if err := db.Where("asset_id = ?", assetID).Delete(&ServiceModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete services: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	models := make([]ServiceModel, len(items))
	for i, s := range items {
		models[i] = serviceToModel(assetID, s)
	}
	if err := db.CreateInBatches(models, 100).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate service entry: %w", domain.ErrConflict)
		}
		return fmt.Errorf("failed to insert services: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
