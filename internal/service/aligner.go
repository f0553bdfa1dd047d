package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/frame"
	"github.com/concordbio/concord/internal/llm"
	"github.com/concordbio/concord/internal/schema"
)

var (
	// ErrMissingRequiredColumn means a required, non-nullable column with
	// no default could not be aligned or inferred.
	ErrMissingRequiredColumn = errors.New("missing required column")
	// ErrSchemaValidation means the aligned frame violates the schema's
	// type or nullability constraints.
	ErrSchemaValidation = errors.New("schema validation failed")
)

// sampleRows is how many rows are shown to the model when matching
// column names or identifying the target schema.
const sampleRows = 5

// AlignRequest carries one dataset through alignment.
type AlignRequest struct {
	Frame    *frame.Frame
	Schema   *schema.Schema
	Context  []string
	FilePath string
}

// Aligner reshapes a source frame onto a target schema: renaming aliased
// and semantically matched columns, inferring the rest in dependency
// order, then validating and normalizing the result.
type Aligner struct {
	llm        domain.LLMClient
	normalizer *Normalizer
	extractor  schema.Extractor
	retry      llm.RetryPolicy
	logger     *zap.Logger
}

func NewAligner(llmClient domain.LLMClient, normalizer *Normalizer, extractor schema.Extractor, logger *zap.Logger) *Aligner {
	return &Aligner{
		llm:        llmClient,
		normalizer: normalizer,
		extractor:  extractor,
		retry:      llm.DefaultRetryPolicy(),
		logger:     logger,
	}
}

// AlignFrame aligns the request's frame to its schema, recording every
// rename, inference, default and mapping on the recorder. The returned
// frame holds exactly the schema's columns, in schema order.
func (a *Aligner) AlignFrame(ctx context.Context, req AlignRequest, rec decision.Recorder) (*frame.Frame, error) {
	f := req.Frame.Clone()

	renames, missing, err := a.matchColumns(ctx, f, req.Schema, rec)
	if err != nil {
		return nil, err
	}
	if len(renames) > 0 {
		if err := f.Rename(renames); err != nil {
			return nil, fmt.Errorf("applying renames: %w", err)
		}
	}

	session := &schema.Session{
		Frame:     f,
		Schema:    req.Schema,
		Context:   req.Context,
		FilePath:  req.FilePath,
		Extractor: a.extractor,
	}
	for _, col := range req.Schema.InferenceOrder(missing, len(req.Context) > 0) {
		if err := a.inferColumn(ctx, session, col, rec); err != nil {
			return nil, err
		}
	}

	if err := a.validate(ctx, f, req.Schema, rec); err != nil {
		return nil, err
	}

	aligned, err := f.Select(req.Schema.ColumnNames())
	if err != nil {
		return nil, fmt.Errorf("selecting schema columns: %w", err)
	}
	return aligned, nil
}

// matchColumns resolves each schema column to a source column by exact
// name, alias, or semantic match, returning the renames to apply and the
// names still missing. Each source column is claimed at most once.
func (a *Aligner) matchColumns(ctx context.Context, f *frame.Frame, s *schema.Schema, rec decision.Recorder) (map[string]string, []string, error) {
	renames := make(map[string]string)
	claimed := make(map[string]bool)
	var missing []string

	for _, col := range s.Columns {
		if f.HasColumn(col.Name) && !claimed[col.Name] {
			claimed[col.Name] = true
			continue
		}

		source := ""
		for _, alias := range col.Aliases {
			if f.HasColumn(alias) && !claimed[alias] {
				source = alias
				break
			}
		}
		if source == "" {
			matched, err := a.matchColumnName(ctx, f, col, claimed)
			if err != nil {
				return nil, nil, err
			}
			source = matched
		}

		if source == "" {
			missing = append(missing, col.Name)
			continue
		}
		claimed[source] = true
		renames[source] = col.Name
		rec.RecordColumnOp(col.Name, decision.Rename(source, col.Name))
	}
	return renames, missing, nil
}

// matchColumnName asks the model which unclaimed source column matches
// the target column. Source names are presented snake_cased and mapped
// back before renaming; answers outside the source set are discarded.
func (a *Aligner) matchColumnName(ctx context.Context, f *frame.Frame, col schema.ColumnSpec, claimed map[string]bool) (string, error) {
	bySnake := make(map[string]string)
	var snakeNames []string
	for _, name := range f.ColumnNames() {
		if claimed[name] {
			continue
		}
		snake := schema.ToSnakeCase(name)
		if _, dup := bySnake[snake]; dup {
			continue
		}
		bySnake[snake] = name
		snakeNames = append(snakeNames, snake)
	}
	if len(snakeNames) == 0 {
		return "", nil
	}

	target := col.Name
	if col.Description != "" {
		target = fmt.Sprintf("%s: %s", col.Name, col.Description)
	}
	prompt := fmt.Sprintf(llm.PromptColumnMatch,
		renderEntries(snakeNames), frameHeadXML(f, sampleRows), target)

	var response string
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = a.llm.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("matching column %q: %w", col.Name, err)
	}

	answer := cleanResponse(response)
	if answer == "" || strings.EqualFold(answer, "none") || strings.EqualFold(answer, "null") {
		return "", nil
	}
	source, ok := bySnake[answer]
	if !ok {
		// The model named something that isn't a source column.
		a.logger.Debug("discarding column match outside source columns",
			zap.String("target", col.Name),
			zap.String("answer", answer))
		return "", nil
	}
	return source, nil
}

// inferColumn fills one missing column from its first rule whose guard
// holds, falling back to the default. A required, non-nullable column
// with no default and no applicable rule fails the alignment.
func (a *Aligner) inferColumn(ctx context.Context, session *schema.Session, col schema.ColumnSpec, rec decision.Recorder) error {
	for _, rule := range col.Rules {
		if !rule.Guard(session) {
			continue
		}
		values, aux, err := rule.Infer(ctx, session)
		if err != nil {
			return fmt.Errorf("inferring column %q: %w", col.Name, err)
		}
		if err := session.Frame.SetColumn(frame.NewSeries(col.Name, values...)); err != nil {
			return err
		}
		kind := decision.InferenceDerived
		if rule.Kind() == schema.RuleExtracted {
			kind = decision.InferenceExtracted
		}
		rec.RecordColumnOp(col.Name, decision.Inference(kind, aux))
		return nil
	}

	if col.Required && !col.Nullable && col.Default.IsNull() {
		return fmt.Errorf("%w: %q", ErrMissingRequiredColumn, col.Name)
	}

	values := make([]frame.Value, session.Frame.NumRows())
	for i := range values {
		values[i] = col.Default
	}
	if err := session.Frame.SetColumn(frame.NewSeries(col.Name, values...)); err != nil {
		return err
	}
	var defaultValue any
	if !col.Default.IsNull() {
		defaultValue = col.Default.Display()
	}
	rec.RecordColumnOp(col.Name, decision.SetValue(defaultValue))
	return nil
}

// validate coerces every schema column to its declared type, normalizing
// entity columns against the ontology, and enforces nullability.
func (a *Aligner) validate(ctx context.Context, f *frame.Frame, s *schema.Schema, rec decision.Recorder) error {
	for _, col := range s.Columns {
		series, ok := f.Column(col.Name)
		if !ok {
			return fmt.Errorf("%w: column %q absent after alignment", ErrSchemaValidation, col.Name)
		}

		if col.Type.IsEntity() {
			normalized, err := a.normalizer.NormalizeColumn(ctx, series, col.Type.EntityTypes(), col.Type.Algorithm(), rec)
			if err != nil {
				return err
			}
			series = normalized
		} else {
			coerced, rejected, err := col.CoerceValues(series)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
			}
			if len(rejected) > 0 {
				rec.RecordColumnOp(col.Name, decision.MapToNull(rejected))
			}
			series = coerced
		}

		if !col.Nullable {
			for _, v := range series.Values {
				if v.IsNull() {
					return fmt.Errorf("%w: column %q contains null values", ErrSchemaValidation, col.Name)
				}
			}
		}
		if err := f.SetColumn(series); err != nil {
			return err
		}
	}
	return nil
}

// frameHeadXML renders the first n rows as XML, one element per row with
// snake_cased column names as tags.
func frameHeadXML(f *frame.Frame, n int) string {
	head := f.Head(n)
	tags := make([]string, head.NumColumns())
	for i, name := range head.ColumnNames() {
		tags[i] = schema.ToSnakeCase(name)
	}
	var b strings.Builder
	b.WriteString("<rows>\n")
	for i := 0; i < head.NumRows(); i++ {
		fmt.Fprintf(&b, "  <row index=\"%d\">", i)
		for c, v := range head.Row(i) {
			fmt.Fprintf(&b, "<%s>%s</%s>", tags[c], v.Display(), tags[c])
		}
		b.WriteString("</row>\n")
	}
	b.WriteString("</rows>")
	return b.String()
}
