package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/financeflow/financeflow/internal/api/middleware"
	"github.com/financeflow/financeflow/internal/database/repository"
	"github.com/financeflow/financeflow/internal/service"
)

// TagsHandler serves tag lookup, creation, rename, delete and color
// overrides.
type TagsHandler struct {
	Registry *service.TagRegistry
	Log      zerolog.Logger
}

type tagJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTagJSON(t repository.Tag, overrides map[string]string) tagJSON {
	color := t.Color
	if o, ok := overrides[t.Name]; ok {
		color = o
	}
	return tagJSON{ID: t.ID, Name: t.Name, Color: color, CreatedAt: t.CreatedAt}
}

// List handles GET /api/tags?q=. Display colors fold in per-owner overrides.
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerID(r.Context())
	tags, err := h.Registry.Search(r.Context(), ownerID, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to list tags")
		return
	}
	overrides, err := h.Registry.Colors.All(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to load color overrides")
		return
	}
	out := make([]tagJSON, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagJSON(t, overrides))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"tags": out})
}

// Create handles POST /api/tags. Resolving an existing name returns it with
// 200; only a genuinely new tag answers 201.
func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tag, created, err := h.Registry.Resolve(r.Context(), middleware.OwnerID(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to create tag")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	middleware.WriteJSON(w, status, toTagJSON(*tag, nil))
}

// Rename handles PUT /api/tags/{id}. Historical transactions keep the old
// name.
func (h *TagsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tag, err := h.Registry.Rename(r.Context(), middleware.OwnerID(r.Context()), r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to rename tag")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTagJSON(*tag, nil))
}

// Delete handles DELETE /api/tags/{id}, sweeping the name out of owned
// transactions.
func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Registry.Delete(r.Context(), middleware.OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to delete tag")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":             true,
		"deletedTag":          res.DeletedTag,
		"updatedTransactions": res.UpdatedTransactions,
	})
}

// SetColor handles PUT /api/tags/{name}/color, recording a display override.
func (h *TagsHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := r.PathValue("name")
	if err := h.Registry.SetColorOverride(r.Context(), middleware.OwnerID(r.Context()), name, req.Color); err != nil {
		writeServiceError(w, h.Log, err, "Failed to set tag color")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tag": name, "color": req.Color})
}

// ClearColor handles DELETE /api/tags/{name}/color, restoring the canonical
// color.
func (h *TagsHandler) ClearColor(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.Registry.ClearColorOverride(r.Context(), middleware.OwnerID(r.Context()), name); err != nil {
		writeServiceError(w, h.Log, err, "Failed to clear tag color")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tag": name})
}

// Palette handles GET /api/tags/colors: the fixed picker palette.
func (h *TagsHandler) Palette(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"colors": service.TagColors()})
}
