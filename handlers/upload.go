package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/authz"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/middleware"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/service"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/store"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UploadHandler struct {
	DB       *store.DB
	Assets   *service.Assets
	Guard    authz.Guard
	MaxBytes int64
	Log      zerolog.Logger
}

type UploadResponse struct {
	URL string `json:"url"`
}

// Upload receives a multipart image and stores its normalized form. The
// destination is either an existing article's folder ("articleId" field) or a
// temporary editing session ("session" field); session uploads are promoted to
// permanent keys when the article is saved.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := h.Guard.CanCreateContent(p); err != nil {
		writeGuardError(w, err)
		return
	}

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, `{"error":"failed to parse multipart form"}`, http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"missing file"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	articleIDStr := r.FormValue("articleId")
	session := r.FormValue("session")
	if articleIDStr == "" && session == "" {
		http.Error(w, `{"error":"destination required: articleId or session"}`, http.StatusBadRequest)
		return
	}

	dest := service.Destination{Session: session}
	var articleID primitive.ObjectID
	if articleIDStr != "" {
		articleID, err = primitive.ObjectIDFromHex(articleIDStr)
		if err != nil {
			http.Error(w, `{"error":"invalid article id"}`, http.StatusBadRequest)
			return
		}
		art, err := h.DB.ArticleByID(r.Context(), articleID)
		if err != nil {
			http.Error(w, `{"error":"failed to load article"}`, http.StatusInternalServerError)
			return
		}
		if art == nil {
			http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
			return
		}
		if err := h.Guard.CanMutateContent(p, art.AuthorID.Hex()); err != nil {
			writeGuardError(w, err)
			return
		}
		dest = service.Destination{ArticleID: articleID.Hex()}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, `{"error":"failed to read file"}`, http.StatusInternalServerError)
		return
	}

	url, err := h.Assets.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data, dest)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedType) {
			http.Error(w, `{"error":"only images and vector graphics are allowed"}`, http.StatusBadRequest)
			return
		}
		h.Log.Error().Err(err).Str("file", header.Filename).Msg("upload failed")
		http.Error(w, `{"error":"failed to upload to storage"}`, http.StatusInternalServerError)
		return
	}

	if articleIDStr != "" {
		// Bookkeeping only; reconcile on the next save recomputes the truth.
		if err := h.DB.AddUploadedAsset(r.Context(), articleID, url); err != nil {
			h.Log.Warn().Err(err).Str("article", articleIDStr).Msg("uploadedAssets bookkeeping failed")
		}
	}
	writeJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
