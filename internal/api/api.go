// Package api is the HTTP boundary: HCP directory, interaction records,
// the extraction agent, runtime stats and the live event feed.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/service"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// HealthMessage is returned by GET /api/.
const HealthMessage = "Backend is running!"

// Deps holds what the handlers need. Hub and Metrics are optional.
type Deps struct {
	Store       store.Store
	Agent       *service.AgentService
	Hub         *Hub
	Metrics     *metrics.Collector
	Logger      *slog.Logger
	CORSOrigins []string
}

type handlers struct {
	store   store.Store
	agent   *service.AgentService
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewRouter builds the chi router with every route mounted under /api.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handlers{store: d.Store, agent: d.Agent, metrics: d.Metrics, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger, d.Metrics))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/", h.health)
		api.Get("/stats", h.stats)

		api.Post("/hcps", h.createHCP)
		api.Get("/hcps/search", h.searchHCPs)
		api.Get("/hcps/{id}", h.getHCP)

		api.Post("/interactions", h.createInteraction)
		api.Get("/interactions/{id}", h.getInteraction)
		api.Patch("/interactions/{id}", h.patchInteraction)

		api.Group(func(ai chi.Router) {
			ai.Use(middleware.Timeout(2 * time.Minute))
			ai.Post("/agent/conversational", h.converse)
			ai.Post("/agent/edit/{id}", h.editViaAgent)
		})

		if d.Hub != nil {
			api.Handle("/events", d.Hub)
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports a failure as {"detail": "..."}.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeStoreError maps store sentinels to status codes.
func (h *handlers) writeStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("store error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type healthResponse struct {
	Message string `json:"message"`
	Storage string `json:"storage"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Message: HealthMessage, Storage: h.store.Name()})
}

func (h *handlers) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *handlers) createHCP(w http.ResponseWriter, r *http.Request) {
	var in models.HCPInput
	if !decode(w, r, &in) {
		return
	}
	created, err := h.store.CreateHCP(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, err, "HCP not found")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *handlers) searchHCPs(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("q") {
		writeError(w, http.StatusUnprocessableEntity, "query parameter q is required")
		return
	}
	found, err := h.store.SearchHCPs(r.Context(), r.URL.Query().Get("q"), store.SearchLimit)
	if err != nil {
		h.writeStoreError(w, err, "HCP not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *handlers) getHCP(w http.ResponseWriter, r *http.Request) {
	found, err := h.store.GetHCP(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err, "HCP not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *handlers) createInteraction(w http.ResponseWriter, r *http.Request) {
	var in models.Interaction
	if !decode(w, r, &in) {
		return
	}
	created, err := h.store.CreateInteraction(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, err, "Interaction not found")
		return
	}
	h.logger.Info("interaction logged", "id", created.ID, "mode", created.Mode, "hcp_id", created.HCPRef())
	writeJSON(w, http.StatusOK, created)
}

func (h *handlers) getInteraction(w http.ResponseWriter, r *http.Request) {
	found, err := h.store.GetInteraction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err, "Interaction not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *handlers) patchInteraction(w http.ResponseWriter, r *http.Request) {
	var patch models.InteractionPatch
	if !decode(w, r, &patch) {
		return
	}
	updated, err := h.store.UpdateInteraction(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeStoreError(w, err, "Interaction not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) converse(w http.ResponseWriter, r *http.Request) {
	var req models.ConversationRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.agent.Converse(r.Context(), req)
	if !res.Success {
		detail := res.Error
		if detail == "" {
			detail = "Processing failed"
		}
		writeError(w, http.StatusBadRequest, detail)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) editViaAgent(w http.ResponseWriter, r *http.Request) {
	var req models.EditRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.agent.Edit(r.Context(), chi.URLParam(r, "id"), req)
	if !res.Success {
		detail := res.Error
		if detail == "" {
			detail = "Edit failed"
		}
		writeError(w, http.StatusBadRequest, detail)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
