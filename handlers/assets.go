package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/authz"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/middleware"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/service"
	"github.com/rs/zerolog"
)

type AssetsHandler struct {
	Assets *service.Assets
	Guard  authz.Guard
	Log    zerolog.Logger
}

type PromoteRequest struct {
	URLs []string `json:"urls"`
}

type PromoteResponse struct {
	Replacements map[string]string `json:"replacements"`
}

// Promote copies temporary session uploads to their permanent keys and returns
// the old-to-new mapping so the editor can rewrite its references before saving.
func (h *AssetsHandler) Promote(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := h.Guard.CanCreateContent(p); err != nil {
		writeGuardError(w, err)
		return
	}
	var req PromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	replacements, err := h.Assets.Promote(r.Context(), req.URLs)
	if err != nil {
		h.Log.Error().Err(err).Msg("promote failed")
		http.Error(w, `{"error":"failed to promote assets"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, PromoteResponse{Replacements: replacements})
}

type DeleteAssetRequest struct {
	URL string `json:"url"`
}

// Delete removes a single asset by locator.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := h.Guard.CanCreateContent(p); err != nil {
		writeGuardError(w, err)
		return
	}
	var req DeleteAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, `{"error":"url required"}`, http.StatusBadRequest)
		return
	}
	if _, ok := h.Assets.Store.Key(req.URL); !ok {
		http.Error(w, `{"error":"unparseable asset url"}`, http.StatusBadRequest)
		return
	}
	if err := h.Assets.DeleteAsset(r.Context(), req.URL); err != nil {
		h.Log.Error().Err(err).Str("url", req.URL).Msg("asset delete failed")
		http.Error(w, `{"error":"failed to delete asset"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}
