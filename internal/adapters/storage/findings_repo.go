package storage

import (
	"context"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// DeleteFindings removes every finding of an asset.
func (a *SQLiteAdapter) DeleteFindings(ctx context.Context, assetID uint) error {
	return a.conn(ctx).Where("asset_id = ?", assetID).Delete(&FindingModel{}).Error
}

// InsertFindings stores findings in batches.
func (a *SQLiteAdapter) InsertFindings(ctx context.Context, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	models := make([]FindingModel, len(findings))
	for i, f := range findings {
		models[i] = findingToModel(f)
	}
	return a.conn(ctx).CreateInBatches(models, 100).Error
}

// ListFindings returns findings newest first.
func (a *SQLiteAdapter) ListFindings(ctx context.Context, filter domain.FindingFilter) ([]domain.Finding, error) {
	query := a.conn(ctx).Order("id DESC")
	if filter.AssetID != nil {
		query = query.Where("asset_id = ?", *filter.AssetID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []FindingModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Finding, len(models))
	for i, m := range models {
		out[i] = findingToDomain(m)
	}
	return out, nil
}

// Stats returns row counts across the store.
func (a *SQLiteAdapter) Stats(ctx context.Context) (domain.CatalogStats, error) {
	var stats domain.CatalogStats
	db := a.conn(ctx)

	counts := []struct {
		model interface{}
		where string
		dst   *int64
	}{
		{&AssetModel{}, "", &stats.Assets},
		{&SoftwareModel{}, "", &stats.Software},
		{&ServiceModel{}, "", &stats.Services},
		{&CVEModel{}, "", &stats.CVEs},
		{&CVEModel{}, "kev = ?", &stats.KEV},
		{&FindingModel{}, "", &stats.Findings},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, true)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return stats, err
		}
	}
	return stats, nil
}
