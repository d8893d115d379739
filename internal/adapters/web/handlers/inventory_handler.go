package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// InventoryHandler serves ingest and the asset, software, finding and stats views.
type InventoryHandler struct {
	Service ports.InventoryService
}

func NewInventoryHandler(service ports.InventoryService) *InventoryHandler {
	return &InventoryHandler{Service: service}
}

type ingestResponse struct {
	Status   string `json:"status"`
	AssetID  uint   `json:"asset_id"`
	Hostname string `json:"hostname"`
	Software int    `json:"software"`
	Services int    `json:"services"`
}

// HandleIngest accepts an inventory snapshot for one asset.
func (h *InventoryHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload domain.InventoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	asset, n, err := h.Service.Ingest(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Status: "ingested", AssetID: asset.ID, Hostname: asset.Hostname, Software: n, Services: len(payload.Services)})
}

func (h *InventoryHandler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Service.ListAssets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if assets == nil {
		assets = []domain.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *InventoryHandler) HandleListSoftware(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"], "id")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", domain.DefaultSoftwareLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	software, err := h.Service.ListSoftware(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if software == nil {
		software = []domain.Software{}
	}
	writeJSON(w, http.StatusOK, software)
}

func (h *InventoryHandler) HandleListServices(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"], "id")
	if err != nil {
		writeError(w, err)
		return
	}
	services, err := h.Service.ListServices(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if services == nil {
		services = []domain.NetworkService{}
	}
	writeJSON(w, http.StatusOK, services)
}

// HandleListFindings lists findings newest first.
func (h *InventoryHandler) HandleListFindings(w http.ResponseWriter, r *http.Request) {
	filter, err := findingFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	findings, err := h.Service.ListFindings(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if findings == nil {
		findings = []domain.Finding{}
	}
	writeJSON(w, http.StatusOK, findings)
}

func (h *InventoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func findingFilter(r *http.Request) (domain.FindingFilter, error) {
	var filter domain.FindingFilter
	assetID, err := optionalID(r, "asset_id")
	if err != nil {
		return filter, err
	}
	limit, err := queryInt(r, "limit", domain.DefaultFindingLimit)
	if err != nil {
		return filter, err
	}
	filter.AssetID = assetID
	filter.Limit = limit
	return filter, nil
}
