package ports

import (
	"context"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// CatalogReader defines the read side of the catalog, inventory and findings store.
type CatalogReader interface {
	// GetAsset returns domain.ErrNotFound when the asset does not exist.
	GetAsset(ctx context.Context, id uint) (*domain.Asset, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	ListAssetIDs(ctx context.Context) ([]uint, error)
	// ListSoftware returns every software row of the asset in insertion order.
	ListSoftware(ctx context.Context, assetID uint) ([]domain.Software, error)
	// ListSoftwareByName returns at most limit software rows of the asset ordered by name.
	ListSoftwareByName(ctx context.Context, assetID uint, limit int) ([]domain.Software, error)
	ListServices(ctx context.Context, assetID uint) ([]domain.NetworkService, error)

	// FindRangesByVendorProduct returns ranges whose vendor and product equal the given values.
	FindRangesByVendorProduct(ctx context.Context, vendor, product string, limit int) ([]domain.CPERange, error)
	// SearchRanges returns ranges whose product contains any product token
	// or whose vendor contains any vendor token. Matching is case-insensitive.
	SearchRanges(ctx context.Context, productTokens, vendorTokens []string, limit int) ([]domain.CPERange, error)

	// GetCVE returns domain.ErrNotFound when the CVE does not exist.
	GetCVE(ctx context.Context, id string) (*domain.CVE, error)
	ListCPERanges(ctx context.Context, cveID string) ([]domain.CPERange, error)

	// ListFindings returns findings newest first.
	ListFindings(ctx context.Context, filter domain.FindingFilter) ([]domain.Finding, error)
	Stats(ctx context.Context) (domain.CatalogStats, error)
}

// CatalogTx is the store view available inside a transaction.
type CatalogTx interface {
	CatalogReader

	// UpsertCVEDetails inserts the CVE or updates its descriptive fields.
	// The KEV flag of an existing row is never modified.
	UpsertCVEDetails(ctx context.Context, cve domain.CVE) error
	// ReplaceCPERanges deletes every range of the CVE and inserts the given ones.
	ReplaceCPERanges(ctx context.Context, cveID string, ranges []domain.CPERange) error
	// MarkKEV flags the CVE as known exploited, creating a minimal row if needed.
	// It reports whether the flag changed.
	MarkKEV(ctx context.Context, cveID string) (bool, error)

	UpsertAsset(ctx context.Context, asset *domain.Asset) error
	ReplaceSoftware(ctx context.Context, assetID uint, items []domain.Software) error
	ReplaceServices(ctx context.Context, assetID uint, items []domain.NetworkService) error

	DeleteFindings(ctx context.Context, assetID uint) error
	InsertFindings(ctx context.Context, findings []domain.Finding) error
}

// CatalogStore is the transactional store.
type CatalogStore interface {
	CatalogReader

	// Transaction runs fn atomically. A returned error rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx CatalogTx) error) error
	Close() error
}
