package feeds_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/vmscout/internal/adapters/storage"
	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/services/feeds"
)

var fixedNow = time.Date(2024, 3, 31, 15, 4, 5, 0, time.UTC)

func sp(s string) *string   { return &s }
func fp(f float64) *float64 { return &f }

type fetchCall struct {
	window     domain.FeedWindow
	startIndex int
}

// fakeFeed serves pages keyed by window start date.
type fakeFeed struct {
	mu         sync.Mutex
	pages      map[string][]*domain.FeedPage
	rejectOver int
	failOn     string
	calls      []fetchCall
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{pages: make(map[string][]*domain.FeedPage)}
}

func (f *fakeFeed) add(windowStart string, page *domain.FeedPage) {
	f.pages[windowStart] = append(f.pages[windowStart], page)
}

func (f *fakeFeed) FetchPage(ctx context.Context, w domain.FeedWindow, startIndex int) (*domain.FeedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{window: w, startIndex: startIndex})

	key := w.Start.Format(time.DateOnly)
	if f.rejectOver > 0 && w.Days() > f.rejectOver {
		return nil, domain.ErrFeedNotFound
	}
	if key == f.failOn {
		return nil, errors.New("connection reset")
	}
	for _, p := range f.pages[key] {
		if p.StartIndex == startIndex {
			return p, nil
		}
	}
	return &domain.FeedPage{StartIndex: startIndex}, nil
}

type fakeExploited struct {
	ids []string
	err error
}

func (f *fakeExploited) FetchExploited(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

func item(id string, matches ...domain.FeedCPEMatch) domain.FeedItem {
	return domain.FeedItem{
		ID:           id,
		Published:    "2024-03-21T08:00:00.000",
		Descriptions: []domain.FeedDescription{{Lang: "en", Value: "summary of " + id}},
		Metrics:      domain.FeedMetrics{V31: []domain.FeedCVSS{{BaseScore: fp(8.1), BaseSeverity: sp("HIGH")}}},
		Matches:      matches,
	}
}

func match(cpe string) domain.FeedCPEMatch {
	return domain.FeedCPEMatch{Criteria: cpe}
}

func newStore(t *testing.T) *storage.SQLiteAdapter {
	store, err := storage.NewSQLiteAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newNVD(store *storage.SQLiteAdapter, feed *fakeFeed) *feeds.NVDSync {
	return feeds.NewNVDSync(store, feed, feeds.NVDConfig{Now: func() time.Time { return fixedNow }})
}

func TestNVDSync_PaginatesAndWrites(t *testing.T) {
	store := newStore(t)
	feed := newFakeFeed()
	feed.add("2024-03-21", &domain.FeedPage{StartIndex: 0, TotalResults: 3, Items: []domain.FeedItem{
		item("CVE-2024-0001", match("cpe:2.3:a:videolan:vlc_media_player:*:*:*:*:*:*:*:*")),
		item("CVE-2024-0002"),
	}})
	feed.add("2024-03-21", &domain.FeedPage{StartIndex: 2, TotalResults: 3, Items: []domain.FeedItem{
		item("CVE-2024-0003"),
	}})

	result, err := newNVD(store, feed).Update(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{CountUpserted: 3, Days: 10}, result)

	require.Len(t, feed.calls, 3)
	assert.Equal(t, 0, feed.calls[0].startIndex)
	assert.Equal(t, 2, feed.calls[1].startIndex)
	assert.Equal(t, "2024-03-31", feed.calls[2].window.Start.Format(time.DateOnly))

	cve, err := store.GetCVE(context.Background(), "CVE-2024-0001")
	require.NoError(t, err)
	assert.Equal(t, "summary of CVE-2024-0001", *cve.Summary)
	assert.Equal(t, 8.1, *cve.CVSS)
	assert.Equal(t, "HIGH", *cve.Severity)
	assert.Equal(t, time.Date(2024, 3, 21, 8, 0, 0, 0, time.UTC), cve.Published.UTC())
	assert.False(t, cve.KEV)
}

func TestNVDSync_ReplacesRangesAcrossRuns(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first := newFakeFeed()
	first.add("2024-03-21", &domain.FeedPage{TotalResults: 1, Items: []domain.FeedItem{
		item("CVE-2024-0001",
			match("cpe:2.3:a:putty:putty:*:*:*:*:*:*:*:*"),
			match("cpe:2.3:a:putty:putty:0.79:*:*:*:*:*:*:*")),
	}})
	_, err := newNVD(store, first).Update(ctx, 10)
	require.NoError(t, err)

	second := newFakeFeed()
	second.add("2024-03-21", &domain.FeedPage{TotalResults: 1, Items: []domain.FeedItem{
		item("CVE-2024-0001", match("cpe:2.3:a:simon_tatham:putty:*:*:*:*:*:*:*:*")),
	}})
	_, err = newNVD(store, second).Update(ctx, 10)
	require.NoError(t, err)

	ranges, err := store.ListCPERanges(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, "cpe:2.3:a:simon_tatham:putty:*:*:*:*:*:*:*:*", ranges[0].CPE23)
}

func TestNVDSync_FallsBackToSmallerWindows(t *testing.T) {
	store := newStore(t)
	feed := newFakeFeed()
	feed.rejectOver = 30
	feed.add("2024-01-21", &domain.FeedPage{TotalResults: 1, Items: []domain.FeedItem{item("CVE-2024-0100")}})

	result, err := newNVD(store, feed).Update(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CountUpserted)

	var starts []string
	for _, c := range feed.calls {
		starts = append(starts, fmt.Sprintf("%s/%d", c.window.Start.Format(time.DateOnly), c.window.Days()))
	}
	assert.Equal(t, []string{
		"2023-12-22/90",
		"2023-12-22/30",
		"2024-01-21/30",
		"2024-02-20/30",
		"2024-03-21/11",
	}, starts)
}

func TestNVDSync_NotFoundOnSmallWindowAborts(t *testing.T) {
	feed := newFakeFeed()
	feed.rejectOver = 5

	_, err := newNVD(newStore(t), feed).Update(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrFeedNotFound)
	assert.Len(t, feed.calls, 1)
}

func TestNVDSync_OtherErrorAbortsKeepingCommittedPages(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	feed := newFakeFeed()
	feed.add("2024-03-21", &domain.FeedPage{TotalResults: 1, Items: []domain.FeedItem{item("CVE-2024-0001")}})
	feed.failOn = "2024-03-31"

	result, err := newNVD(store, feed).Update(ctx, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, result.CountUpserted)

	_, err = store.GetCVE(ctx, "CVE-2024-0001")
	assert.NoError(t, err)
}

func TestNVDSync_Validation(t *testing.T) {
	feed := newFakeFeed()
	_, err := newNVD(newStore(t), feed).Update(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, feed.calls)
}

func TestNVDSync_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	feed := newFakeFeed()

	_, err := newNVD(newStore(t), feed).Update(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, feed.calls)
}

func TestNVDSync_PreservesKEV(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := store.MarkKEV(ctx, "CVE-2024-0001")
	require.NoError(t, err)

	feed := newFakeFeed()
	feed.add("2024-03-21", &domain.FeedPage{TotalResults: 1, Items: []domain.FeedItem{item("CVE-2024-0001")}})
	_, err = newNVD(store, feed).Update(ctx, 10)
	require.NoError(t, err)

	cve, err := store.GetCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	assert.True(t, cve.KEV)
	assert.Equal(t, "HIGH", *cve.Severity)
}

func TestKEVSync_MarksAndIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.UpsertCVEDetails(ctx, domain.CVE{ID: "CVE-2021-44228", Severity: sp("CRITICAL")}))

	feed := &fakeExploited{ids: []string{"CVE-2021-44228", "CVE-2023-4863", "CVE-2021-44228", " "}}
	kev := feeds.NewKEVSync(store, feed, nil)

	result, err := kev.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.CountMarked)

	existing, err := store.GetCVE(ctx, "CVE-2021-44228")
	require.NoError(t, err)
	assert.True(t, existing.KEV)
	assert.Equal(t, "CRITICAL", *existing.Severity)

	minimal, err := store.GetCVE(ctx, "CVE-2023-4863")
	require.NoError(t, err)
	assert.True(t, minimal.KEV)
	assert.Nil(t, minimal.Summary)

	result, err = kev.Update(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.CountMarked)

	feed.ids = nil
	_, err = kev.Update(ctx)
	require.NoError(t, err)
	still, err := store.GetCVE(ctx, "CVE-2023-4863")
	require.NoError(t, err)
	assert.True(t, still.KEV, "absence from the list never clears the flag")
}

func TestKEVSync_FetchError(t *testing.T) {
	boom := errors.New("tls handshake timeout")
	_, err := feeds.NewKEVSync(newStore(t), &fakeExploited{err: boom}, nil).Update(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestService_KEVThenNVDEnrichesMinimalEntry(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	feed := newFakeFeed()
	feed.add("2024-03-21", &domain.FeedPage{TotalResults: 1, Items: []domain.FeedItem{
		item("CVE-2023-4863", match("cpe:2.3:a:google:chrome:*:*:*:*:*:*:*:*")),
	}})
	svc := feeds.NewService(newNVD(store, feed), feeds.NewKEVSync(store, &fakeExploited{ids: []string{"CVE-2023-4863"}}, nil))

	kevResult, err := svc.SyncKnownExploited(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, kevResult.CountMarked)

	nvdResult, err := svc.SyncVulnerabilities(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, nvdResult.CountUpserted)

	cve, err := store.GetCVE(ctx, "CVE-2023-4863")
	require.NoError(t, err)
	assert.True(t, cve.KEV)
	assert.Equal(t, "summary of CVE-2023-4863", *cve.Summary)
	ranges, err := store.ListCPERanges(ctx, "CVE-2023-4863")
	require.NoError(t, err)
	assert.Len(t, ranges, 1)
}

func TestSplitWindow(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	windows := feeds.SplitWindow(domain.FeedWindow{Start: day(1), End: day(10)}, 4)
	require.Len(t, windows, 3)
	assert.Equal(t, domain.FeedWindow{Start: day(1), End: day(4)}, windows[0])
	assert.Equal(t, domain.FeedWindow{Start: day(5), End: day(8)}, windows[1])
	assert.Equal(t, domain.FeedWindow{Start: day(9), End: day(10)}, windows[2])

	single := feeds.SplitWindow(domain.FeedWindow{Start: day(3), End: day(3)}, 90)
	assert.Equal(t, []domain.FeedWindow{{Start: day(3), End: day(3)}}, single)
}
