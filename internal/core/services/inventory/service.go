// Package inventory ingests software snapshots reported by agents.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// Service implements ports.InventoryService.
type Service struct {
	store  ports.CatalogStore
	logger *slog.Logger
}

var _ ports.InventoryService = (*Service)(nil)

func NewService(store ports.CatalogStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger.With("component", "inventory")}
}

// Ingest upserts the asset by hostname and replaces its software and
// service snapshots. It returns the stored asset and the number of
// software rows written.
func (s *Service) Ingest(ctx context.Context, payload domain.InventoryPayload) (*domain.Asset, int, error) {
	if err := payload.Validate(); err != nil {
		return nil, 0, err
	}

	asset := &domain.Asset{
		Hostname:  strings.TrimSpace(payload.Hostname),
		OSName:    domain.OptionalString(strings.TrimSpace(payload.OS.Name)),
		OSVersion: domain.OptionalString(strings.TrimSpace(payload.OS.Version)),
		OSBuild:   domain.OptionalString(strings.TrimSpace(payload.OS.Build)),
	}

	var written int
	err := s.store.Transaction(ctx, func(tx ports.CatalogTx) error {
		if err := tx.UpsertAsset(ctx, asset); err != nil {
			return err
		}
		snapshot := payload.Snapshot(asset.ID)
		if err := tx.ReplaceSoftware(ctx, asset.ID, snapshot); err != nil {
			return err
		}
		if err := tx.ReplaceServices(ctx, asset.ID, payload.ServiceSnapshot(asset.ID)); err != nil {
			return err
		}
		written = len(snapshot)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ingest %s: %w", asset.Hostname, err)
	}

	s.logger.Info("inventory ingested", "asset_id", asset.ID, "hostname", asset.Hostname, "software", written, "services", len(payload.Services))
	return asset, written, nil
}

func (s *Service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.store.ListAssets(ctx)
}

// ListSoftware returns up to limit software rows ordered by name, or
// domain.ErrNotFound for an unknown asset.
func (s *Service) ListSoftware(ctx context.Context, assetID uint, limit int) ([]domain.Software, error) {
	if limit < 1 {
		return nil, domain.NewValidationError("limit", "limit must be positive")
	}
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListSoftwareByName(ctx, assetID, limit)
}

func (s *Service) ListServices(ctx context.Context, assetID uint) ([]domain.NetworkService, error) {
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListServices(ctx, assetID)
}

func (s *Service) ListFindings(ctx context.Context, filter domain.FindingFilter) ([]domain.Finding, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	return s.store.ListFindings(ctx, filter)
}

func (s *Service) Stats(ctx context.Context) (domain.CatalogStats, error) {
	return s.store.Stats(ctx)
}
