package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/frame"
	"github.com/concordbio/concord/internal/schema"
)

// ErrNoSchemaMatched means no target schema could be identified for the
// dataset; the file is reported and skipped, not fatal to a batch.
var ErrNoSchemaMatched = errors.New("no schema matched")

// PipelineService runs one dataset through schema identification and
// alignment as a single pipeline node, persisting decisions and mappings
// when it finishes, whatever the outcome.
type PipelineService struct {
	aligner    *Aligner
	identifier *SchemaIdentifier
	mappings   domain.MappingStore
	sink       decision.Sink
	logger     *zap.Logger
}

func NewPipelineService(aligner *Aligner, identifier *SchemaIdentifier, mappings domain.MappingStore, sink decision.Sink, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		aligner:    aligner,
		identifier: identifier,
		mappings:   mappings,
		sink:       sink,
		logger:     logger,
	}
}

// ProcessRequest is one dataset to process. SchemaName selects a target
// schema directly; when empty the schema is identified from the data.
type ProcessRequest struct {
	Frame      *frame.Frame
	SchemaName string
	Context    []string
	FilePath   string
	// RunID groups this node with others from the same pipeline run.
	// Empty means a fresh run.
	RunID string
}

// ProcessResult is the aligned dataset plus the identifiers needed to
// audit and review what happened.
type ProcessResult struct {
	RunID    string                 `json:"run_id"`
	NodeID   string                 `json:"node_id"`
	Schema   string                 `json:"schema"`
	Frame    *frame.Frame           `json:"frame"`
	Mappings []domain.MappingRecord `json:"mappings,omitempty"`
}

// Process aligns one dataset. The node is recorded and persisted exactly
// once, including on failure, so no file is dropped without a log entry.
func (p *PipelineService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	name := req.FilePath
	if name == "" {
		name = "align"
	}
	rec := decision.NewNodeRecorder(uuid.NewString(), name)

	result, err := p.process(ctx, req, rec)
	if err != nil {
		rec.Record(decision.Message(decision.TypeUnableToProcess, err.Error()))
		rec.Finish(decision.StatusFailed)
	} else {
		rec.Finish(decision.StatusSuccess)
	}
	if sinkErr := p.sink.Write(runID, rec.Node()); sinkErr != nil {
		p.logger.Error("persisting decision node failed",
			zap.String("run_id", runID),
			zap.String("node_id", rec.Node().ID),
			zap.Error(sinkErr))
	}
	if err != nil {
		return nil, err
	}

	result.RunID = runID
	result.NodeID = rec.Node().ID
	result.Mappings, err = p.persistMappings(ctx, runID, rec)
	if err != nil {
		// Mappings are for review; the aligned data is still good.
		p.logger.Error("persisting mappings failed", zap.String("run_id", runID), zap.Error(err))
	}
	return result, nil
}

func (p *PipelineService) process(ctx context.Context, req ProcessRequest, rec decision.Recorder) (*ProcessResult, error) {
	var target *schema.Schema
	if req.SchemaName != "" {
		s, err := schema.Get(req.SchemaName)
		if err != nil {
			return nil, err
		}
		target = s
		rec.Record(decision.Message(decision.TypeSchemaIdentified, s.Name))
	} else {
		s, err := p.identifier.Identify(ctx, req.Frame, schema.Builtin(), rec)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, ErrNoSchemaMatched
		}
		target = s
	}

	aligned, err := p.aligner.AlignFrame(ctx, AlignRequest{
		Frame:    req.Frame,
		Schema:   target,
		Context:  req.Context,
		FilePath: req.FilePath,
	}, rec)
	if err != nil {
		return nil, fmt.Errorf("aligning to %s: %w", target.Name, err)
	}
	return &ProcessResult{Schema: target.Name, Frame: aligned}, nil
}

// persistMappings stores every mapping the node recorded, keyed to the
// run for later review.
func (p *PipelineService) persistMappings(ctx context.Context, runID string, rec *decision.NodeRecorder) ([]domain.MappingRecord, error) {
	var records []domain.MappingRecord
	for _, d := range rec.Decisions() {
		if d.Alignment == nil {
			continue
		}
		for _, op := range d.Alignment.Operations {
			if op.Type != decision.OpMapping {
				continue
			}
			for _, m := range op.Mappings {
				records = append(records, domain.MappingRecord{
					RunID:      runID,
					ColumnName: d.Alignment.ColumnName,
					Mention:    m.Mention,
					EntityID:   m.EntityID,
					EntityName: m.EntityName,
					Types:      m.Types,
					Score:      m.Score,
				})
			}
		}
	}
	if len(records) == 0 {
		return nil, nil
	}
	return p.mappings.Append(ctx, records)
}
