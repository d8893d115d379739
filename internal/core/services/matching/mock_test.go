package matching

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// MockCatalog mocks ports.CatalogReader
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetAsset(ctx context.Context, id uint) (*domain.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockCatalog) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Asset), args.Error(1)
}

func (m *MockCatalog) ListAssetIDs(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockCatalog) ListSoftware(ctx context.Context, assetID uint) ([]domain.Software, error) {
	args := m.Called(ctx, assetID)
	return args.Get(0).([]domain.Software), args.Error(1)
}

func (m *MockCatalog) ListSoftwareByName(ctx context.Context, assetID uint, limit int) ([]domain.Software, error) {
	args := m.Called(ctx, assetID, limit)
	return args.Get(0).([]domain.Software), args.Error(1)
}

func (m *MockCatalog) ListServices(ctx context.Context, assetID uint) ([]domain.NetworkService, error) {
	args := m.Called(ctx, assetID)
	return args.Get(0).([]domain.NetworkService), args.Error(1)
}

func (m *MockCatalog) FindRangesByVendorProduct(ctx context.Context, vendor, product string, limit int) ([]domain.CPERange, error) {
	args := m.Called(ctx, vendor, product, limit)
	return args.Get(0).([]domain.CPERange), args.Error(1)
}

func (m *MockCatalog) SearchRanges(ctx context.Context, productTokens, vendorTokens []string, limit int) ([]domain.CPERange, error) {
	args := m.Called(ctx, productTokens, vendorTokens, limit)
	return args.Get(0).([]domain.CPERange), args.Error(1)
}

func (m *MockCatalog) GetCVE(ctx context.Context, id string) (*domain.CVE, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CVE), args.Error(1)
}

func (m *MockCatalog) ListCPERanges(ctx context.Context, cveID string) ([]domain.CPERange, error) {
	args := m.Called(ctx, cveID)
	return args.Get(0).([]domain.CPERange), args.Error(1)
}

func (m *MockCatalog) ListFindings(ctx context.Context, filter domain.FindingFilter) ([]domain.Finding, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Finding), args.Error(1)
}

func (m *MockCatalog) Stats(ctx context.Context) (domain.CatalogStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.CatalogStats), args.Error(1)
}
