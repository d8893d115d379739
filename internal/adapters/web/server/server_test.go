package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lcalzada-xor/vmscout/internal/adapters/web"
	"github.com/lcalzada-xor/vmscout/internal/adapters/web/server"
	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

type mocks struct {
	syncer    *web.MockFeedSyncer
	matcher   *web.MockMatcher
	jobs      *web.MockJobRunner
	inventory *web.MockInventoryService
	exporter  *web.MockReportExporter
}

// setupServer builds the router over mocks. Optional mutators adjust the deps.
func setupServer(t *testing.T, opts ...func(*server.Deps)) (http.Handler, *mocks) {
	m := &mocks{
		syncer:    new(web.MockFeedSyncer),
		matcher:   new(web.MockMatcher),
		jobs:      new(web.MockJobRunner),
		inventory: new(web.MockInventoryService),
		exporter:  new(web.MockReportExporter),
	}
	deps := server.Deps{
		Syncer:          m.syncer,
		Matcher:         m.matcher,
		Jobs:            m.jobs,
		Inventory:       m.inventory,
		Exporter:        m.exporter,
		DefaultSyncDays: 30,
		FeedRateLimit:   100,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return server.NewServer(":0", deps).Handler(ctx), m
}

func do(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSyncNVD_QueuesJob(t *testing.T) {
	h, m := setupServer(t)
	job := domain.Job{ID: "f3b1", Kind: domain.JobSyncNVD, Status: domain.JobQueued}
	m.jobs.On("Submit", domain.JobSyncNVD, mock.Anything).Return(job, nil)
	m.syncer.On("SyncVulnerabilities", mock.Anything, 7).Return(domain.SyncResult{CountUpserted: 12, Days: 7}, nil)

	rec := do(h, http.MethodPost, "/api/feeds/nvd?days=7", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/jobs/f3b1", rec.Header().Get("Location"))

	var got domain.Job
	decode(t, rec, &got)
	assert.Equal(t, "f3b1", got.ID)

	fn := m.jobs.Calls[0].Arguments.Get(1).(ports.JobFunc)
	result, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{CountUpserted: 12, Days: 7}, result)
}

func TestSyncNVD_Wait(t *testing.T) {
	h, m := setupServer(t)
	m.syncer.On("SyncVulnerabilities", mock.Anything, 30).Return(domain.SyncResult{CountUpserted: 3, Days: 30}, nil)

	rec := do(h, http.MethodPost, "/api/feeds/nvd?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]int
	decode(t, rec, &got)
	assert.Equal(t, map[string]int{"count_upserted": 3, "days": 30}, got)
	m.jobs.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSyncNVD_BadDays(t *testing.T) {
	h, _ := setupServer(t)

	for _, q := range []string{"days=abc", "days=0", "days=-3"} {
		rec := do(h, http.MethodPost, "/api/feeds/nvd?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestSyncKEV(t *testing.T) {
	h, m := setupServer(t)
	m.syncer.On("SyncKnownExploited", mock.Anything).Return(domain.KEVResult{CountMarked: 4}, nil).Once()

	rec := do(h, http.MethodPost, "/api/feeds/kev?wait=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count_marked":4}`, rec.Body.String())

	m.jobs.On("Submit", domain.JobSyncKEV, mock.Anything).
		Return(domain.Job{}, domain.ErrQueueFull)
	rec = do(h, http.MethodPost, "/api/feeds/kev", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFeeds_UpstreamFailure(t *testing.T) {
	h, m := setupServer(t)
	m.syncer.On("SyncKnownExploited", mock.Anything).Return(domain.KEVResult{}, errors.New("kev returned 502 Bad Gateway"))

	rec := do(h, http.MethodPost, "/api/feeds/kev?wait=true", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFeeds_RateLimited(t *testing.T) {
	h, m := setupServer(t, func(d *server.Deps) { d.FeedRateLimit = 1 })
	m.syncer.On("SyncKnownExploited", mock.Anything).Return(domain.KEVResult{}, nil)

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/feeds/kev?wait=true", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "/api/feeds/kev?wait=true", nil).Code)
}

func TestGetJob(t *testing.T) {
	h, m := setupServer(t)
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	m.jobs.On("Get", "abc").Return(domain.Job{ID: "abc", Status: domain.JobSucceeded, QueuedAt: now}, true)
	m.jobs.On("Get", "nope").Return(domain.Job{}, false)

	rec := do(h, http.MethodGet, "/api/jobs/abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job domain.Job
	decode(t, rec, &job)
	assert.Equal(t, domain.JobSucceeded, job.Status)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/jobs/nope", nil).Code)
}

func TestMatchRun(t *testing.T) {
	h, m := setupServer(t)
	m.matcher.On("MatchAsset", mock.Anything, uint(3)).Return(domain.MatchResult{AssetID: 3, FindingsCreated: 2}, nil)
	m.matcher.On("MatchAsset", mock.Anything, uint(9)).Return(domain.MatchResult{}, domain.ErrNotFound)
	m.matcher.On("MatchAll", mock.Anything).Return(domain.MatchAllResult{AssetsProcessed: 5, FindingsCreated: 8, Failed: 1}, nil)

	rec := do(h, http.MethodPost, "/api/match/run?asset_id=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"asset_id":3,"findings_created":2}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/match/run?asset_id=9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/match/run?asset_id=x", nil).Code)

	rec = do(h, http.MethodPost, "/api/match/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"assets_processed":5,"findings_created":8,"failed":1}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/match/run", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodPost, "/healthz", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/nothing", nil).Code)
}

func TestIngest(t *testing.T) {
	h, m := setupServer(t)
	m.inventory.On("Ingest", mock.Anything, mock.MatchedBy(func(p domain.InventoryPayload) bool {
		return p.Hostname == "ws-01" && len(p.Software) == 1
	})).Return(&domain.Asset{ID: 1, Hostname: "ws-01"}, 1, nil)
	m.inventory.On("Ingest", mock.Anything, mock.MatchedBy(func(p domain.InventoryPayload) bool {
		return p.Hostname == "dup"
	})).Return(nil, 0, domain.ErrConflict)

	body := `{"hostname":"ws-01","os":{"name":"Windows 11"},"software":[{"name":"VLC media player","version":"3.0.1"}]}`
	rec := do(h, http.MethodPost, "/api/ingest/inventory", bytes.NewBufferString(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ingested","asset_id":1,"hostname":"ws-01","software":1,"services":0}`, rec.Body.String())

	m.inventory.On("Ingest", mock.Anything, mock.MatchedBy(func(p domain.InventoryPayload) bool {
		return p.Hostname == "srv-01" && len(p.Services) == 2 && *p.Services[0].LocalPort == 22
	})).Return(&domain.Asset{ID: 2, Hostname: "srv-01"}, 0, nil)
	body = `{"hostname":"srv-01","services":[{"protocol":"tcp","local_port":22},{"protocol":"udp","local_port":53}]}`
	rec = do(h, http.MethodPost, "/api/ingest/inventory", bytes.NewBufferString(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ingested","asset_id":2,"hostname":"srv-01","software":0,"services":2}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/ingest/inventory", bytes.NewBufferString(`{"hostname":"dup"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodPost, "/api/ingest/inventory", bytes.NewBufferString(`{"hostname":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("agent-key"), bcrypt.MinCost)
	require.NoError(t, err)
	h, m := setupServer(t, func(d *server.Deps) { d.APIKeyHash = string(hash) })
	m.matcher.On("MatchAll", mock.Anything).Return(domain.MatchAllResult{}, nil)
	m.inventory.On("Stats", mock.Anything).Return(domain.CatalogStats{Assets: 2}, nil)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "/api/match/run", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/match/run", nil)
	req.Header.Set("X-API-Key", "agent-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/stats", nil).Code, "reads stay public")
}

func TestListEndpoints(t *testing.T) {
	h, m := setupServer(t)
	assetID := uint(4)
	m.inventory.On("ListAssets", mock.Anything).Return([]domain.Asset(nil), nil)
	m.inventory.On("ListSoftware", mock.Anything, uint(4), domain.DefaultSoftwareLimit).Return([]domain.Software{{ID: 1, AssetID: 4, Name: "PuTTY"}}, nil)
	m.inventory.On("ListSoftware", mock.Anything, uint(4), 1).Return([]domain.Software{{ID: 2, AssetID: 4, Name: "Git"}}, nil)
	m.inventory.On("ListSoftware", mock.Anything, uint(5), domain.DefaultSoftwareLimit).Return([]domain.Software(nil), domain.ErrNotFound)
	m.inventory.On("ListServices", mock.Anything, uint(4)).Return([]domain.NetworkService{{ID: 3, AssetID: 4, LocalPort: 22}}, nil)
	m.inventory.On("ListServices", mock.Anything, uint(6)).Return([]domain.NetworkService(nil), nil)
	m.inventory.On("ListFindings", mock.Anything, domain.FindingFilter{AssetID: &assetID, Limit: 20}).
		Return([]domain.Finding{{ID: 9, AssetID: 4, CVEID: "CVE-2024-3100"}}, nil)
	m.inventory.On("ListFindings", mock.Anything, domain.FindingFilter{Limit: domain.DefaultFindingLimit}).
		Return([]domain.Finding(nil), nil)
	m.inventory.On("Stats", mock.Anything).Return(domain.CatalogStats{Assets: 1, Findings: 1}, nil)

	rec := do(h, http.MethodGet, "/api/assets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/assets/4/software", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var software []domain.Software
	decode(t, rec, &software)
	require.Len(t, software, 1)
	assert.Equal(t, "PuTTY", software[0].Name)

	rec = do(h, http.MethodGet, "/api/assets/4/software?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &software)
	require.Len(t, software, 1)
	assert.Equal(t, "Git", software[0].Name)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/assets/4/software?limit=x", nil).Code)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/assets/5/software", nil).Code)

	rec = do(h, http.MethodGet, "/api/assets/4/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":3,"asset_id":4,"local_port":22}]`, rec.Body.String())
	rec = do(h, http.MethodGet, "/api/assets/6/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/api/assets/0/software", nil).Code)

	rec = do(h, http.MethodGet, "/api/findings?asset_id=4&limit=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var findings []domain.Finding
	decode(t, rec, &findings)
	require.Len(t, findings, 1)
	assert.Equal(t, "CVE-2024-3100", findings[0].CVEID)

	rec = do(h, http.MethodGet, "/api/findings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"assets":1,"software":0,"services":0,"cves":0,"kev":0,"findings":1}`, rec.Body.String())
}

func TestFindingsPDF(t *testing.T) {
	h, m := setupServer(t)
	m.inventory.On("ListFindings", mock.Anything, domain.FindingFilter{Limit: domain.MaxFindingLimit}).
		Return([]domain.Finding{{AssetID: 1, CVEID: "CVE-2024-0001", KEV: true}}, nil)
	m.exporter.On("ExportFindings", mock.MatchedBy(func(r *domain.FindingsReport) bool {
		return r.Stats.KEV == 1 && len(r.TopRisks) == 1
	}), mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(io.Writer).Write([]byte("%PDF-1.3 test"))
	}).Return(nil)

	rec := do(h, http.MethodGet, "/api/findings/report.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "%PDF-1.3 test", rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := setupServer(t)

	rec := do(h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/metrics", nil).Code)
}
