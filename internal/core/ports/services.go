package ports

import (
	"context"
	"io"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
)

// FeedSyncer keeps the catalog current from the external feeds.
type FeedSyncer interface {
	SyncVulnerabilities(ctx context.Context, days int) (domain.SyncResult, error)
	SyncKnownExploited(ctx context.Context) (domain.KEVResult, error)
}

// Matcher materializes findings from inventory and catalog.
type Matcher interface {
	MatchAsset(ctx context.Context, assetID uint) (domain.MatchResult, error)
	MatchAll(ctx context.Context) (domain.MatchAllResult, error)
}

// JobFunc is the work of a background job. Its result is stored on the job.
type JobFunc func(ctx context.Context) (interface{}, error)

// JobRunner executes background jobs one at a time.
type JobRunner interface {
	// Submit returns domain.ErrQueueFull when no more jobs can be queued.
	Submit(kind domain.JobKind, fn JobFunc) (domain.Job, error)
	Get(id string) (domain.Job, bool)
}

// JobObserver is notified of every job state transition.
type JobObserver interface {
	JobUpdated(job domain.Job)
}

// InventoryService ingests inventory snapshots and serves read views.
type InventoryService interface {
	Ingest(ctx context.Context, payload domain.InventoryPayload) (*domain.Asset, int, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	ListSoftware(ctx context.Context, assetID uint, limit int) ([]domain.Software, error)
	ListServices(ctx context.Context, assetID uint) ([]domain.NetworkService, error)
	ListFindings(ctx context.Context, filter domain.FindingFilter) ([]domain.Finding, error)
	Stats(ctx context.Context) (domain.CatalogStats, error)
}

// ReportExporter renders a findings report.
type ReportExporter interface {
	ExportFindings(report *domain.FindingsReport, w io.Writer) error
}

// Recommender derives remediation steps from findings.
type Recommender interface {
	Recommend(findings []domain.Finding) []domain.Recommendation
}
