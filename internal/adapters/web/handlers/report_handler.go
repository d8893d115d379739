package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// topRisks is the number of CVEs listed in a findings report.
const topRisks = 15

// ReportHandler renders findings reports
type ReportHandler struct {
	Service     ports.InventoryService
	Exporter    ports.ReportExporter
	Recommender ports.Recommender // optional
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service ports.InventoryService, exporter ports.ReportExporter, recommender ports.Recommender) *ReportHandler {
	return &ReportHandler{Service: service, Exporter: exporter, Recommender: recommender}
}

// HandleFindingsPDF renders the findings of all assets, or of asset_id, as a PDF.
func (h *ReportHandler) HandleFindingsPDF(w http.ResponseWriter, r *http.Request) {
	assetID, err := optionalID(r, "asset_id")
	if err != nil {
		writeError(w, err)
		return
	}

	findings, err := h.Service.ListFindings(r.Context(), domain.FindingFilter{AssetID: assetID, Limit: domain.MaxFindingLimit})
	if err != nil {
		writeError(w, err)
		return
	}

	meta := domain.ReportMetadata{
		ID:          uuid.NewString(),
		Title:       "Vulnerability Findings",
		GeneratedAt: time.Now().UTC(),
		GeneratedBy: "vmscout",
		AssetID:     assetID,
	}
	report := domain.BuildFindingsReport(meta, findings, topRisks)
	if h.Recommender != nil {
		report.Recommendations = h.Recommender.Recommend(findings)
	}

	// Render fully before writing headers so failures still produce a JSON error.
	var buf bytes.Buffer
	if err := h.Exporter.ExportFindings(report, &buf); err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("findings-%s.pdf", meta.GeneratedAt.Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
