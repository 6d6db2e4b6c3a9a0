package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/authz"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/middleware"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/service"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/store"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ArticlesHandler struct {
	DB             *store.DB
	Assets         *service.Assets
	Guard          authz.Guard
	ReaderHashSalt string
	Log            zerolog.Logger
}

type ArticleRequest struct {
	Title      string      `json:"title"`
	Body       models.Node `json:"body"`
	CoverImage string      `json:"coverImage"`
	Status     string      `json:"status"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// Create inserts a new draft owned by the caller.
func (h *ArticlesHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := h.Guard.CanCreateContent(p); err != nil {
		writeGuardError(w, err)
		return
	}
	var req ArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, `{"error":"title required"}`, http.StatusBadRequest)
		return
	}
	authorID, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		writeGuardError(w, authz.ErrUnauthenticated)
		return
	}

	now := time.Now()
	art := &models.Article{
		AuthorID:   authorID,
		Title:      req.Title,
		Slug:       slugify(req.Title),
		Status:     models.StatusDraft,
		Body:       req.Body,
		CoverImage: req.CoverImage,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id, err := h.DB.InsertArticle(r.Context(), art)
	if err != nil {
		h.Log.Error().Err(err).Msg("article insert failed")
		http.Error(w, `{"error":"failed to create article"}`, http.StatusInternalServerError)
		return
	}
	art.ID = id
	writeJSON(w, http.StatusCreated, art)
}

// Update saves an article (full save, last write wins) and then reconciles
// storage against the new content.
func (h *ArticlesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid article id"}`, http.StatusBadRequest)
		return
	}
	art, err := h.DB.ArticleByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"failed to load article"}`, http.StatusInternalServerError)
		return
	}
	if art == nil {
		http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
		return
	}
	p := middleware.PrincipalFromContext(r.Context())
	if err := h.Guard.CanMutateContent(p, art.AuthorID.Hex()); err != nil {
		writeGuardError(w, err)
		return
	}

	var req ArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, `{"error":"title required"}`, http.StatusBadRequest)
		return
	}
	status := art.Status
	if req.Status != "" {
		if req.Status != models.StatusDraft && req.Status != models.StatusPublished {
			http.Error(w, `{"error":"invalid status; use draft or published"}`, http.StatusBadRequest)
			return
		}
		status = req.Status
	}

	now := time.Now()
	set := bson.M{
		"title":      req.Title,
		"body":       req.Body,
		"coverImage": req.CoverImage,
		"status":     status,
		"updatedAt":  now,
	}
	if status == models.StatusPublished && art.PublishedAt == nil {
		set["publishedAt"] = now
		art.PublishedAt = &now
	}
	if err := h.DB.UpdateArticle(r.Context(), id, set); err != nil {
		h.Log.Error().Err(err).Str("article", id.Hex()).Msg("article update failed")
		http.Error(w, `{"error":"failed to save article"}`, http.StatusInternalServerError)
		return
	}

	// The primary write succeeded; cleanup of abandoned uploads is
	// best-effort from here on.
	art.Title = req.Title
	art.Slug = slugify(req.Title)
	art.Body = req.Body
	art.CoverImage = req.CoverImage
	art.Status = status
	art.UpdatedAt = now
	deleted, recorded := h.Assets.Reconcile(r.Context(), art)
	if len(deleted) > 0 {
		h.Log.Info().Str("article", id.Hex()).Strs("refs", deleted).Msg("reconciled orphaned uploads")
	}
	art.UploadedAssets = recorded
	if err := h.DB.SetUploadedAssets(r.Context(), id, recorded); err != nil {
		h.Log.Warn().Err(err).Str("article", id.Hex()).Msg("uploadedAssets bookkeeping update failed")
	}
	writeJSON(w, http.StatusOK, art)
}

// Delete removes the article, its read receipts, and every asset it owns.
// Storage deletions run first: if the document delete then fails, the record
// is still there to retry against.
func (h *ArticlesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid article id"}`, http.StatusBadRequest)
		return
	}
	art, err := h.DB.ArticleByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"failed to load article"}`, http.StatusInternalServerError)
		return
	}
	if art == nil {
		http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
		return
	}
	p := middleware.PrincipalFromContext(r.Context())
	if err := h.Guard.CanMutateContent(p, art.AuthorID.Hex()); err != nil {
		writeGuardError(w, err)
		return
	}

	purged := h.Assets.Purge(r.Context(), art)
	h.Log.Info().Str("article", id.Hex()).Int("assets", len(purged)).Msg("article assets purged")

	if err := h.DB.DeleteArticleReads(r.Context(), id); err != nil {
		h.Log.Error().Err(err).Str("article", id.Hex()).Msg("read receipt cascade failed")
		http.Error(w, `{"error":"failed to delete article"}`, http.StatusInternalServerError)
		return
	}
	if err := h.DB.DeleteArticle(r.Context(), id); err != nil {
		if err == mongo.ErrNoDocuments {
			http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
			return
		}
		h.Log.Error().Err(err).Str("article", id.Hex()).Msg("article delete failed")
		http.Error(w, `{"error":"failed to delete article"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true})
}

// List returns articles visible to the caller: published ones for everyone,
// plus the caller's own drafts for authors, and everything for admins.
func (h *ArticlesHandler) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	filter := bson.M{"status": models.StatusPublished}
	switch p.Role {
	case models.RoleAdmin:
		filter = bson.M{}
	case models.RoleAuthor:
		if uid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
			filter = bson.M{"$or": []bson.M{
				{"status": models.StatusPublished},
				{"authorId": uid},
			}}
		}
	}
	articles, err := h.DB.ListArticles(r.Context(), filter)
	if err != nil {
		http.Error(w, `{"error":"failed to list articles"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (h *ArticlesHandler) visible(art *models.Article, p authz.Principal) bool {
	if art.Status == models.StatusPublished {
		return true
	}
	return p.Role == models.RoleAdmin || p.ID == art.AuthorID.Hex()
}

func (h *ArticlesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid article id"}`, http.StatusBadRequest)
		return
	}
	art, err := h.DB.ArticleByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"failed to load article"}`, http.StatusInternalServerError)
		return
	}
	p := middleware.PrincipalFromContext(r.Context())
	if art == nil || !h.visible(art, p) {
		http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

type ReadResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
	Timestamp  string `json:"timestamp"`
}

// RecordRead counts a read of a published article, at most once per distinct
// reader identity. The reader is identified by a salted hash of the request
// IP; a repeat read still succeeds but does not increment.
func (h *ArticlesHandler) RecordRead(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid article id"}`, http.StatusBadRequest)
		return
	}
	art, err := h.DB.ArticleByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"failed to load article"}`, http.StatusInternalServerError)
		return
	}
	if art == nil || art.Status != models.StatusPublished {
		http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
		return
	}

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	readerHash := utils.ReaderHash(h.ReaderHashSalt, ip)

	counted, err := h.DB.RecordRead(r.Context(), id, readerHash)
	if err != nil {
		h.Log.Error().Err(err).Str("article", id.Hex()).Msg("read receipt failed")
		http.Error(w, `{"error":"failed to record read"}`, http.StatusInternalServerError)
		return
	}
	if counted {
		h.Log.Debug().Str("article", id.Hex()).Str("reader", utils.HashPrefix(readerHash)).Msg("read counted")
	}
	writeJSON(w, http.StatusOK, ReadResponse{
		Success:    true,
		DocumentID: id.Hex(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}
