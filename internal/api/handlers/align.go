package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/frame"
	"github.com/concordbio/concord/internal/schema"
	"github.com/concordbio/concord/internal/service"
)

type AlignHandler struct {
	pipeline   *service.PipelineService
	identifier *service.SchemaIdentifier
}

func NewAlignHandler(pipeline *service.PipelineService, identifier *service.SchemaIdentifier) *AlignHandler {
	return &AlignHandler{pipeline: pipeline, identifier: identifier}
}

type alignRequest struct {
	Frame    *frame.Frame `json:"frame"`
	Schema   string       `json:"schema,omitempty"`
	Context  []string     `json:"context,omitempty"`
	FilePath string       `json:"file_path,omitempty"`
	RunID    string       `json:"run_id,omitempty"`
}

// Align runs one dataset through schema identification (unless a schema
// is named) and alignment, returning the aligned frame.
func (h *AlignHandler) Align(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Frame == nil || req.Frame.NumColumns() == 0 {
		writeError(w, http.StatusBadRequest, "frame is required")
		return
	}

	result, err := h.pipeline.Process(r.Context(), service.ProcessRequest{
		Frame:      req.Frame,
		SchemaName: req.Schema,
		Context:    req.Context,
		FilePath:   req.FilePath,
		RunID:      req.RunID,
	})
	if err != nil {
		switch {
		case errors.Is(err, schema.ErrUnknownSchema):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNoSchemaMatched):
			writeError(w, http.StatusUnprocessableEntity, "no target schema matched the dataset")
		case errors.Is(err, service.ErrMissingRequiredColumn),
			errors.Is(err, service.ErrSchemaValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to process dataset")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type identifyRequest struct {
	Frame *frame.Frame `json:"frame"`
}

type identifyResponse struct {
	Schema *string `json:"schema"`
}

// Identify returns the best matching built-in schema name, or null.
func (h *AlignHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Frame == nil || req.Frame.NumColumns() == 0 {
		writeError(w, http.StatusBadRequest, "frame is required")
		return
	}

	matched, err := h.identifier.Identify(r.Context(), req.Frame, schema.Builtin(), decision.NopRecorder{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to identify schema")
		return
	}
	resp := identifyResponse{}
	if matched != nil {
		resp.Schema = &matched.Name
	}
	writeJSON(w, http.StatusOK, resp)
}
