package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/concordbio/concord/internal/schema"
)

type SchemaHandler struct{}

func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

type columnView struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Nullable    bool     `json:"nullable"`
	Aliases     []string `json:"aliases,omitempty"`
	Rules       int      `json:"inference_rules"`
}

type schemaView struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Columns     []columnView `json:"columns"`
}

func viewOf(s *schema.Schema) schemaView {
	view := schemaView{Name: s.Name, Description: s.Description}
	for _, col := range s.Columns {
		view.Columns = append(view.Columns, columnView{
			Name:        col.Name,
			Type:        col.Type.String(),
			Description: col.Description,
			Required:    col.Required,
			Nullable:    col.Nullable,
			Aliases:     col.Aliases,
			Rules:       len(col.Rules),
		})
	}
	return view
}

// List returns the built-in target schema catalog.
func (h *SchemaHandler) List(w http.ResponseWriter, r *http.Request) {
	schemas := schema.Builtin()
	views := make([]schemaView, len(schemas))
	for i, s := range schemas {
		views[i] = viewOf(s)
	}
	writeJSON(w, http.StatusOK, views)
}

// GetByName returns one schema definition.
func (h *SchemaHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	s, err := schema.Get(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, schema.ErrUnknownSchema) {
			writeError(w, http.StatusNotFound, "schema not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load schema")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}
