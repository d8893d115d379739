package web

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// MockFeedSyncer is a mock of ports.FeedSyncer
type MockFeedSyncer struct {
	mock.Mock
}

func (m *MockFeedSyncer) SyncVulnerabilities(ctx context.Context, days int) (domain.SyncResult, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(domain.SyncResult), args.Error(1)
}

func (m *MockFeedSyncer) SyncKnownExploited(ctx context.Context) (domain.KEVResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.KEVResult), args.Error(1)
}

// MockMatcher is a mock of ports.Matcher
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) MatchAsset(ctx context.Context, assetID uint) (domain.MatchResult, error) {
	args := m.Called(ctx, assetID)
	return args.Get(0).(domain.MatchResult), args.Error(1)
}

func (m *MockMatcher) MatchAll(ctx context.Context) (domain.MatchAllResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.MatchAllResult), args.Error(1)
}

// MockJobRunner is a mock of ports.JobRunner
type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) Submit(kind domain.JobKind, fn ports.JobFunc) (domain.Job, error) {
	args := m.Called(kind, fn)
	return args.Get(0).(domain.Job), args.Error(1)
}

func (m *MockJobRunner) Get(id string) (domain.Job, bool) {
	args := m.Called(id)
	return args.Get(0).(domain.Job), args.Bool(1)
}

// MockInventoryService is a mock of ports.InventoryService
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) Ingest(ctx context.Context, payload domain.InventoryPayload) (*domain.Asset, int, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).(*domain.Asset), args.Int(1), args.Error(2)
}

func (m *MockInventoryService) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Asset), args.Error(1)
}

func (m *MockInventoryService) ListSoftware(ctx context.Context, assetID uint, limit int) ([]domain.Software, error) {
	args := m.Called(ctx, assetID, limit)
	return args.Get(0).([]domain.Software), args.Error(1)
}

func (m *MockInventoryService) ListServices(ctx context.Context, assetID uint) ([]domain.NetworkService, error) {
	args := m.Called(ctx, assetID)
	return args.Get(0).([]domain.NetworkService), args.Error(1)
}

func (m *MockInventoryService) ListFindings(ctx context.Context, filter domain.FindingFilter) ([]domain.Finding, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Finding), args.Error(1)
}

func (m *MockInventoryService) Stats(ctx context.Context) (domain.CatalogStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.CatalogStats), args.Error(1)
}

// MockReportExporter is a mock of ports.ReportExporter
type MockReportExporter struct {
	mock.Mock
}

func (m *MockReportExporter) ExportFindings(report *domain.FindingsReport, w io.Writer) error {
	args := m.Called(report, w)
	return args.Error(0)
}
