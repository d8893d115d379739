package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
	"github.com/lcalzada-xor/vmscout/internal/telemetry"
)

// Config tunes the engine.
type Config struct {
	TopK    int
	Workers int
	Logger  *slog.Logger
}

// Engine materializes findings by matching each asset's software against
// the catalog. It implements ports.Matcher.
type Engine struct {
	store     ports.CatalogStore
	retriever *Retriever
	scorer    *Scorer
	locks     *assetLocks
	workers   int64
	logger    *slog.Logger
}

var _ ports.Matcher = (*Engine)(nil)

// NewEngine creates a matching engine.
func NewEngine(store ports.CatalogStore, tables *Tables, cfg Config) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:     store,
		retriever: NewRetriever(tables),
		scorer:    NewScorer(tables, cfg.TopK),
		locks:     newAssetLocks(),
		workers:   int64(cfg.Workers),
		logger:    cfg.Logger.With("component", "matching"),
	}
}

// MatchAsset replaces the findings of one asset in a single transaction.
// Concurrent calls for the same asset are serialized.
func (e *Engine) MatchAsset(ctx context.Context, assetID uint) (domain.MatchResult, error) {
	result := domain.MatchResult{AssetID: assetID}
	if assetID == 0 {
		return result, domain.NewValidationError("asset_id", "must be positive")
	}

	ctx, span := telemetry.Tracer().Start(ctx, "matching.MatchAsset",
		trace.WithAttributes(attribute.Int64("asset.id", int64(assetID))))
	defer span.End()

	unlock, err := e.locks.lock(ctx, assetID)
	if err != nil {
		return result, err
	}
	defer unlock()

	err = e.store.Transaction(ctx, func(tx ports.CatalogTx) error {
		if _, err := tx.GetAsset(ctx, assetID); err != nil {
			return err
		}
		if err := tx.DeleteFindings(ctx, assetID); err != nil {
			return fmt.Errorf("failed to clear findings: %w", err)
		}
		software, err := tx.ListSoftware(ctx, assetID)
		if err != nil {
			return fmt.Errorf("failed to load software: %w", err)
		}
		findings, err := e.collect(ctx, tx, assetID, software)
		if err != nil {
			return err
		}
		if err := tx.InsertFindings(ctx, findings); err != nil {
			return fmt.Errorf("failed to insert findings: %w", err)
		}
		result.FindingsCreated = len(findings)
		return nil
	})
	if err != nil {
		telemetry.MatchRuns.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.MatchResult{AssetID: assetID}, err
	}

	telemetry.MatchRuns.WithLabelValues("success").Inc()
	telemetry.FindingsCreated.Add(float64(result.FindingsCreated))
	span.SetAttributes(attribute.Int("findings.created", result.FindingsCreated))
	e.logger.Debug("asset matched", "asset_id", assetID, "findings", result.FindingsCreated)
	return result, nil
}

// collect builds the findings for every software row of an asset.
func (e *Engine) collect(ctx context.Context, tx ports.CatalogTx, assetID uint, software []domain.Software) ([]domain.Finding, error) {
	cves := make(map[string]*domain.CVE)
	seen := make(map[string]struct{})
	var findings []domain.Finding

	for _, sw := range software {
		ranges, phase, err := e.retriever.Candidates(ctx, tx, sw)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve candidates for software %d: %w", sw.ID, err)
		}
		if len(ranges) == 0 {
			continue
		}

		ranked := e.scorer.Rank(sw, ranges)
		e.logger.Debug("candidates ranked",
			"software_id", sw.ID, "phase", phase, "candidates", len(ranges), "kept", len(ranked))

		for _, c := range ranked {
			if !EvaluateRange(sw.Version, c.Range).Applies() {
				continue
			}

			cve, ok := cves[c.Range.CVEID]
			if !ok {
				cve, err = tx.GetCVE(ctx, c.Range.CVEID)
				if errors.Is(err, domain.ErrNotFound) {
					cve, err = nil, nil
				}
				if err != nil {
					return nil, fmt.Errorf("failed to load %s: %w", c.Range.CVEID, err)
				}
				cves[c.Range.CVEID] = cve
			}
			// Dangling range
			if cve == nil {
				continue
			}

			key := fmt.Sprintf("%d/%s", sw.ID, cve.ID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			swID := sw.ID
			findings = append(findings, domain.Finding{
				AssetID:         assetID,
				SoftwareID:      &swID,
				CVEID:           cve.ID,
				Product:         c.Range.Product,
				DetectedVersion: sw.Version,
				Severity:        cve.Severity,
				CVSS:            cve.CVSS,
				KEV:             cve.KEV,
			})
		}
	}
	return findings, nil
}

// MatchAll matches every asset on a bounded pool. A failing asset is
// logged and counted without stopping the others.
func (e *Engine) MatchAll(ctx context.Context) (domain.MatchAllResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "matching.MatchAll")
	defer span.End()

	ids, err := e.store.ListAssetIDs(ctx)
	if err != nil {
		return domain.MatchAllResult{}, fmt.Errorf("failed to list assets: %w", err)
	}

	var (
		mu     sync.Mutex
		result = domain.MatchAllResult{AssetsProcessed: len(ids)}
	)
	sem := semaphore.NewWeighted(e.workers)
	var acquireErr error
	for i, id := range ids {
		if acquireErr = sem.Acquire(ctx, 1); acquireErr != nil {
			mu.Lock()
			result.Failed += len(ids) - i
			mu.Unlock()
			break
		}
		go func(id uint) {
			defer sem.Release(1)
			r, err := e.MatchAsset(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				e.logger.Error("asset match failed", "asset_id", id, "error", err)
				return
			}
			result.FindingsCreated += r.FindingsCreated
		}(id)
	}
	// Wait for in-flight matches; every goroutine releases its slot.
	_ = sem.Acquire(context.Background(), e.workers)

	span.SetAttributes(
		attribute.Int("assets.processed", result.AssetsProcessed),
		attribute.Int("assets.failed", result.Failed),
	)
	e.logger.Info("match run finished",
		"assets", result.AssetsProcessed, "findings", result.FindingsCreated, "failed", result.Failed)
	if acquireErr != nil {
		return result, acquireErr
	}
	return result, nil
}
