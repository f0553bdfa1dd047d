package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/decision"
)

// RunHandler serves recorded decision log nodes for past runs.
type RunHandler struct {
	sink   *decision.DirSink
	logger *zap.Logger
}

func NewRunHandler(sink *decision.DirSink, logger *zap.Logger) *RunHandler {
	return &RunHandler{sink: sink, logger: logger}
}

// ListNodes returns every node recorded under a run, ordered by start time.
func (h *RunHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	nodes, err := h.sink.ListNodes(runID)
	if err != nil {
		if errors.Is(err, decision.ErrNodeNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to list run nodes", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list run nodes")
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// GetNode returns a single recorded node with its full decision trail.
func (h *RunHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	nodeID := chi.URLParam(r, "nodeID")
	node, err := h.sink.GetNode(runID, nodeID)
	if err != nil {
		if errors.Is(err, decision.ErrNodeNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		h.logger.Error("failed to read node",
			zap.String("run_id", runID), zap.String("node_id", nodeID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read node")
		return
	}
	writeJSON(w, http.StatusOK, node)
}
