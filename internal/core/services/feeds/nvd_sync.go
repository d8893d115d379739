package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
	"github.com/lcalzada-xor/vmscout/internal/telemetry"
)

const (
	DefaultWindowDays   = 90
	DefaultFallbackDays = 30
)

// NVDConfig tunes the enumeration synchronizer.
type NVDConfig struct {
	WindowDays   int
	FallbackDays int
	Logger       *slog.Logger
	Now          func() time.Time
}

// NVDSync pulls CVE descriptors published in a date range into the catalog.
type NVDSync struct {
	store        ports.CatalogStore
	feed         ports.VulnerabilityFeed
	windowDays   int
	fallbackDays int
	logger       *slog.Logger
	now          func() time.Time
}

// NewNVDSync creates an enumeration synchronizer.
func NewNVDSync(store ports.CatalogStore, feed ports.VulnerabilityFeed, cfg NVDConfig) *NVDSync {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.FallbackDays < 1 {
		cfg.FallbackDays = DefaultFallbackDays
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &NVDSync{
		store:        store,
		feed:         feed,
		windowDays:   cfg.WindowDays,
		fallbackDays: cfg.FallbackDays,
		logger:       cfg.Logger.With("component", "nvd_sync"),
		now:          cfg.Now,
	}
}

// Update syncs CVEs published in the last days days and returns how many
// descriptors were written. Pages already committed stay committed when a
// later page fails.
func (s *NVDSync) Update(ctx context.Context, days int) (domain.SyncResult, error) {
	result := domain.SyncResult{Days: days}
	if days <= 0 {
		return result, domain.NewValidationError("days", "must be positive")
	}

	ctx, span := telemetry.Tracer().Start(ctx, "feeds.SyncNVD",
		trace.WithAttributes(attribute.Int("sync.days", days)))
	defer span.End()

	end := truncateDay(s.now())
	full := domain.FeedWindow{Start: end.AddDate(0, 0, -days), End: end}
	size := s.windowDays
	if days < size {
		size = days
	}

	for _, w := range SplitWindow(full, size) {
		n, err := s.syncWindow(ctx, w)
		if errors.Is(err, domain.ErrFeedNotFound) && w.Days() > s.fallbackDays {
			s.logger.Warn("window rejected, retrying in smaller windows",
				"window_start", w.Start.Format(time.DateOnly),
				"window_end", w.End.Format(time.DateOnly),
				"fallback_days", s.fallbackDays)
			n, err = s.syncFallback(ctx, w)
		}
		result.CountUpserted += n
		if err != nil {
			return result, s.fail(span, result, err)
		}
	}

	telemetry.FeedSyncs.WithLabelValues("nvd", "success").Inc()
	s.logger.Info("nvd sync complete", "days", days, "count_upserted", result.CountUpserted)
	return result, nil
}

func (s *NVDSync) syncFallback(ctx context.Context, w domain.FeedWindow) (int, error) {
	total := 0
	for _, sub := range SplitWindow(w, s.fallbackDays) {
		n, err := s.syncWindow(ctx, sub)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// syncWindow paginates one window, committing each page in its own transaction.
func (s *NVDSync) syncWindow(ctx context.Context, w domain.FeedWindow) (int, error) {
	s.logger.Debug("fetching window",
		"window_start", w.Start.Format(time.DateOnly),
		"window_end", w.End.Format(time.DateOnly))

	count := 0
	startIndex := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		page, err := s.feed.FetchPage(ctx, w, startIndex)
		if err != nil {
			return count, err
		}
		if len(page.Items) == 0 {
			return count, nil
		}

		written := 0
		err = s.store.Transaction(ctx, func(tx ports.CatalogTx) error {
			written = 0
			for _, item := range page.Items {
				if item.ID == "" {
					continue
				}
				if err := tx.UpsertCVEDetails(ctx, item.ToCVE()); err != nil {
					return fmt.Errorf("upsert %s: %w", item.ID, err)
				}
				if err := tx.ReplaceCPERanges(ctx, item.ID, item.Ranges()); err != nil {
					return fmt.Errorf("replace ranges of %s: %w", item.ID, err)
				}
				written++
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count += written
		telemetry.CVEsUpserted.Add(float64(written))

		startIndex += len(page.Items)
		if startIndex >= page.TotalResults {
			return count, nil
		}
	}
}

func (s *NVDSync) fail(span trace.Span, result domain.SyncResult, err error) error {
	telemetry.FeedSyncs.WithLabelValues("nvd", "error").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("nvd sync failed", "count_upserted", result.CountUpserted, "error", err)
	return fmt.Errorf("nvd sync: %w", err)
}

// SplitWindow cuts w into consecutive windows of at most size days.
func SplitWindow(w domain.FeedWindow, size int) []domain.FeedWindow {
	if size < 1 {
		size = 1
	}
	var out []domain.FeedWindow
	for cur := w.Start; !cur.After(w.End); {
		end := cur.AddDate(0, 0, size-1)
		if end.After(w.End) {
			end = w.End
		}
		out = append(out, domain.FeedWindow{Start: cur, End: end})
		cur = end.AddDate(0, 0, 1)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
