package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
	"github.com/lcalzada-xor/vmscout/internal/telemetry"
)

// KEVSync flags catalog entries listed as known exploited.
type KEVSync struct {
	store  ports.CatalogStore
	feed   ports.ExploitedFeed
	logger *slog.Logger
}

// NewKEVSync creates a known-exploited synchronizer.
func NewKEVSync(store ports.CatalogStore, feed ports.ExploitedFeed, logger *slog.Logger) *KEVSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &KEVSync{store: store, feed: feed, logger: logger.With("component", "kev_sync")}
}

// Update marks every listed CVE in one transaction and returns how many
// flags changed. Unknown CVEs are created with only the flag set. The flag
// is never cleared.
func (s *KEVSync) Update(ctx context.Context) (domain.KEVResult, error) {
	var result domain.KEVResult

	ctx, span := telemetry.Tracer().Start(ctx, "feeds.SyncKEV")
	defer span.End()

	ids, err := s.feed.FetchExploited(ctx)
	if err != nil {
		return result, s.fail(span, err)
	}

	seen := make(map[string]struct{}, len(ids))
	marked := 0
	err = s.store.Transaction(ctx, func(tx ports.CatalogTx) error {
		marked = 0
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			changed, err := tx.MarkKEV(ctx, id)
			if err != nil {
				return fmt.Errorf("mark %s: %w", id, err)
			}
			if changed {
				marked++
			}
		}
		return nil
	})
	if err != nil {
		return result, s.fail(span, err)
	}

	result.CountMarked = marked
	span.SetAttributes(attribute.Int("kev.listed", len(seen)), attribute.Int("kev.marked", marked))
	telemetry.FeedSyncs.WithLabelValues("kev", "success").Inc()
	telemetry.KEVMarked.Add(float64(marked))
	s.logger.Info("kev sync complete", "listed", len(seen), "count_marked", marked)
	return result, nil
}

func (s *KEVSync) fail(span trace.Span, err error) error {
	telemetry.FeedSyncs.WithLabelValues("kev", "error").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("kev sync failed", "error", err)
	return fmt.Errorf("kev sync: %w", err)
}
