package handlers

import (
	"net/http"

	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// MatchHandler runs the matcher.
type MatchHandler struct {
	Matcher ports.Matcher
}

func NewMatchHandler(matcher ports.Matcher) *MatchHandler {
	return &MatchHandler{Matcher: matcher}
}

// HandleRun matches one asset when asset_id is given, otherwise every asset.
func (h *MatchHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	assetID, err := optionalID(r, "asset_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if assetID != nil {
		result, err := h.Matcher.MatchAsset(r.Context(), *assetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := h.Matcher.MatchAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
