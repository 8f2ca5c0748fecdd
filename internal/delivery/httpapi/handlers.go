package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"CountryAtlas/internal/domain"
)

// Handler serves the country endpoints.
type Handler struct {
	queries   CountryQueries
	refresher RefreshRunner
	logger    *slog.Logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type refreshResponse struct {
	Message         string `json:"message"`
	CountriesStored int    `json:"countries_stored"`
	Upserted        int    `json:"upserted"`
	Failed          int    `json:"failed"`
	RunID           string `json:"run_id"`
}

type statusResponse struct {
	TotalCountries  int                 `json:"total_countries"`
	LastRefreshedAt *time.Time          `json:"last_refreshed_at"`
	RefreshState    domain.RefreshState `json:"refresh_state"`
}

type deleteResponse struct {
	Message     string `json:"message"`
	DeletedRows int64  `json:"deleted_rows"`
}

// Health reports whether the database answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.queries.Ping(r.Context()); err != nil {
		h.logger.Error("database ping failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Database connection failed", "")
		return
	}
	render.JSON(w, r, map[string]string{"message": "Server running and database connected"})
}

// ListCountries lists stored countries filtered by region and currency.
func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	countries, err := h.queries.List(r.Context(), domain.CountryFilter{
		Region:   q.Get("region"),
		Currency: q.Get("currency"),
		Sort:     domain.ParseSortOrder(q.Get("sort")),
	})
	if err != nil {
		h.logger.Error("list countries", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to fetch countries", "")
		return
	}
	render.JSON(w, r, countries)
}

// StoreStatus reports the row count, last refresh time and refresh state.
func (h *Handler) StoreStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.queries.Status(r.Context())
	if err != nil {
		h.logger.Error("store status", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to fetch status", "")
		return
	}
	resp := statusResponse{
		TotalCountries:  status.TotalCountries,
		LastRefreshedAt: status.LastRefreshedAt,
		RefreshState:    domain.StateIdle,
	}
	if h.refresher != nil {
		resp.RefreshState = h.refresher.State()
	}
	render.JSON(w, r, resp)
}

// SummaryImage serves the cached summary PNG.
func (h *Handler) SummaryImage(w http.ResponseWriter, r *http.Request) {
	path, err := h.queries.SummaryImage()
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "Summary image not found", "")
		return
	}
	if err != nil {
		h.logger.Error("summary image", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to serve image", "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// Refresh runs a full refresh and reports the counts of the run.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.refresher.Refresh(r.Context())
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "External data source unavailable", err.Error())
		return
	case errors.Is(err, domain.ErrArtifactRender):
		writeError(w, r, http.StatusInternalServerError, "Failed to generate summary image", err.Error())
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "Refresh failed", err.Error())
		return
	}

	render.JSON(w, r, refreshResponse{
		Message:         "Data refreshed successfully and image generated",
		CountriesStored: result.CountriesStored,
		Upserted:        result.Upserted,
		Failed:          result.Failed,
		RunID:           result.RunID,
	})
}

// GetCountry returns one country by name.
func (h *Handler) GetCountry(w http.ResponseWriter, r *http.Request) {
	country, err := h.queries.Get(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "Country not found", "")
		return
	}
	if err != nil {
		h.logger.Error("get country", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to fetch country", "")
		return
	}
	render.JSON(w, r, country)
}

// DeleteCountry removes one country by name.
func (h *Handler) DeleteCountry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := h.queries.Delete(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "Country not found", "")
		return
	}
	if err != nil {
		h.logger.Error("delete country", "country", name, "error", err)
		writeError(w, r, http.StatusInternalServerError, "Failed to delete country", "")
		return
	}
	render.JSON(w, r, deleteResponse{
		Message:     fmt.Sprintf("%s deleted successfully", name),
		DeletedRows: n,
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg, details string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, Details: details})
}
