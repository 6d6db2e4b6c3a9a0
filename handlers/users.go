package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/authz"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/middleware"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type UsersHandler struct {
	DB    *store.DB
	Guard authz.Guard
	Log   zerolog.Logger
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Disabled  bool   `json:"disabled"`
	CreatedAt string `json:"createdAt"`
}

func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		Role:      u.Role,
		Disabled:  u.Disabled,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// principal re-reads the acting user from the database instead of trusting the
// token's role claim, so a demotion or disable takes effect on the very next
// privileged request.
func (h *UsersHandler) principal(r *http.Request) (authz.Principal, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return authz.Principal{}, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return authz.Principal{}, false
	}
	user, err := h.DB.UserByID(r.Context(), id)
	if err != nil || user == nil {
		return authz.Principal{}, false
	}
	return authz.Principal{ID: user.ID.Hex(), Email: user.Email, Role: user.Role, Disabled: user.Disabled}, true
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a user's role. Guarded: never the caller's own role,
// never the super admin, admin callers only. On success the new role is
// persisted and picked up by the next token refresh.
func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	p, ok := h.principal(r)
	if !ok {
		writeGuardError(w, authz.ErrUnauthenticated)
		return
	}
	if err := h.Guard.CanChangeRole(p, id.Hex()); err != nil {
		writeGuardError(w, err)
		return
	}

	role := strings.TrimSpace(strings.ToLower(req.Role))
	if !models.RoleValid(role) {
		writeJSON(w, http.StatusBadRequest, statusResponse{Success: false, Message: "invalid role; use reader, author, or admin"})
		return
	}
	target, err := h.DB.UserByID(r.Context(), id)
	if err != nil {
		h.Log.Error().Err(err).Msg("role update lookup failed")
		http.Error(w, `{"error":"failed to update role"}`, http.StatusInternalServerError)
		return
	}
	if target == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	if err := h.DB.UpdateUserRole(r.Context(), id, role); err != nil {
		h.Log.Error().Err(err).Str("uid", id.Hex()).Msg("role update failed")
		http.Error(w, `{"error":"failed to update role"}`, http.StatusInternalServerError)
		return
	}
	h.Log.Info().Str("uid", id.Hex()).Str("role", role).Str("by", p.ID).Msg("role updated")
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "role updated to " + role})
}

type SetDisabledRequest struct {
	Disabled *bool `json:"disabled"`
}

// SetDisabled disables or re-enables a user account. Guarded: never the
// caller's own account, admin callers only.
func (h *UsersHandler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	var req SetDisabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Disabled == nil {
		http.Error(w, `{"error":"disabled field required"}`, http.StatusBadRequest)
		return
	}

	p, ok := h.principal(r)
	if !ok {
		writeGuardError(w, authz.ErrUnauthenticated)
		return
	}
	if err := h.Guard.CanSetDisabled(p, id.Hex()); err != nil {
		writeGuardError(w, err)
		return
	}

	target, err := h.DB.UserByID(r.Context(), id)
	if err != nil {
		h.Log.Error().Err(err).Msg("disable lookup failed")
		http.Error(w, `{"error":"failed to update account"}`, http.StatusInternalServerError)
		return
	}
	if target == nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	if err := h.DB.SetUserDisabled(r.Context(), id, *req.Disabled); err != nil {
		h.Log.Error().Err(err).Str("uid", id.Hex()).Msg("disable update failed")
		http.Error(w, `{"error":"failed to update account"}`, http.StatusInternalServerError)
		return
	}
	msg := "account enabled"
	if *req.Disabled {
		msg = "account disabled"
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: msg})
}

// List returns all users (admin only).
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(r)
	if !ok {
		writeGuardError(w, authz.ErrUnauthenticated)
		return
	}
	if err := h.Guard.CanAdminister(p); err != nil {
		writeGuardError(w, err)
		return
	}
	users, err := h.DB.ListUsers(r.Context())
	if err != nil {
		http.Error(w, `{"error":"failed to list users"}`, http.StatusInternalServerError)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userToResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create adds a reader or author account (admin only). Admin accounts cannot
// be created through the API.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(r)
	if !ok {
		writeGuardError(w, authz.ErrUnauthenticated)
		return
	}
	if err := h.Guard.CanAdminister(p); err != nil {
		writeGuardError(w, err)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password required"}`, http.StatusBadRequest)
		return
	}
	role := strings.TrimSpace(strings.ToLower(req.Role))
	if role == "" {
		role = models.RoleReader
	}
	if role == models.RoleAdmin {
		http.Error(w, `{"error":"cannot create admin user via API"}`, http.StatusBadRequest)
		return
	}
	if !models.RoleValid(role) {
		http.Error(w, `{"error":"invalid role; use reader or author"}`, http.StatusBadRequest)
		return
	}
	existing, err := h.DB.UserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, `{"error":"failed to create user"}`, http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, `{"error":"email already in use"}`, http.StatusConflict)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"failed to create user"}`, http.StatusInternalServerError)
		return
	}
	user := &models.User{
		Email:     req.Email,
		Password:  string(hash),
		Role:      role,
		CreatedAt: time.Now(),
	}
	id, err := h.DB.CreateUser(r.Context(), user)
	if err != nil {
		http.Error(w, `{"error":"failed to create user"}`, http.StatusInternalServerError)
		return
	}
	user.ID = id
	writeJSON(w, http.StatusCreated, userToResponse(user))
}
