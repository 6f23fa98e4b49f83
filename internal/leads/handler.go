package leads

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nimbus-crm/nimbus-crm/internal/shared"
)

// Handler serves the lead CRUD API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the lead routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/import", h.importBatch)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/convert", h.convert)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListLeadsRequest{Limit: 50}
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid owner_id", http.StatusBadRequest)
			return
		}
		req.OwnerID = &id
	}
	if status := r.URL.Query().Get("status"); status != "" {
		req.Status = &status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	result, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list leads", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	page := req.Offset/req.Limit + 1
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leads":      result,
		"total":      total,
		"pagination": shared.NewPagination(page, req.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid lead id", http.StatusBadRequest)
		return
	}
	lead, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "get lead")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, err, "create lead")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid lead id", http.StatusBadRequest)
		return
	}
	var req UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.service.Update(r.Context(), id, req); err != nil {
		h.respondError(w, err, "update lead")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid lead id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err, "delete lead")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid lead id", http.StatusBadRequest)
		return
	}
	dealID, err := h.service.Convert(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "convert lead")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"deal_id": dealID})
}

func (h *Handler) importBatch(w http.ResponseWriter, r *http.Request) {
	var rows []CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	imported, err := h.service.ImportBatch(r.Context(), rows)
	if err != nil {
		h.logger.Error("import leads", slog.Int("imported", imported), slog.Any("error", err))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"imported": imported,
			"error":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"imported": imported})
}

func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "lead not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			http.Error(w, verrs.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error(op, slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
