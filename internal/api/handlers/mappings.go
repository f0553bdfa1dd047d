package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/store"
)

// MappingHandler serves the curator review surface over persisted
// mention mappings.
type MappingHandler struct {
	mappings domain.MappingStore
	logger   *zap.Logger
}

func NewMappingHandler(mappings domain.MappingStore, logger *zap.Logger) *MappingHandler {
	return &MappingHandler{mappings: mappings, logger: logger}
}

// List aggregates mappings across runs, optionally filtered by a
// comma-separated types query parameter.
func (h *MappingHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := parseEntityTypes(r.URL.Query().Get("types"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	aggregates, err := h.mappings.Aggregate(r.Context(), types)
	if err != nil {
		h.logger.Error("failed to aggregate mappings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list mappings")
		return
	}
	if aggregates == nil {
		aggregates = []domain.MappingAggregate{}
	}
	writeJSON(w, http.StatusOK, aggregates)
}

type updateMappingRequest struct {
	EntityID   string   `json:"entity_id"`
	EntityName string   `json:"entity_name"`
	Score      *float64 `json:"score,omitempty"`
}

// Update overwrites a mapping's resolved entity in place. The original
// resolution stays visible in the decision log.
func (h *MappingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mapping id")
		return
	}

	var req updateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return
	}

	record, err := h.mappings.UpdateByID(r.Context(), id, req.EntityID, req.EntityName, req.Score)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "mapping not found")
			return
		}
		h.logger.Error("failed to update mapping", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update mapping")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func parseEntityTypes(raw string) ([]domain.EntityType, error) {
	if raw == "" {
		return nil, nil
	}
	var types []domain.EntityType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !domain.ValidEntityType(part) {
			return nil, fmt.Errorf("unknown entity type %q", part)
		}
		types = append(types, domain.EntityType(part))
	}
	return types, nil
}
