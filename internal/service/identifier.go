package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/frame"
	"github.com/concordbio/concord/internal/llm"
	"github.com/concordbio/concord/internal/schema"
)

// identifySampleRows is how many rows of the dataset the model sees.
const identifySampleRows = 3

// SchemaIdentifier picks the target schema for a dataset from the
// candidates' names and descriptions plus a small row sample.
type SchemaIdentifier struct {
	llm    domain.LLMClient
	retry  llm.RetryPolicy
	logger *zap.Logger
}

func NewSchemaIdentifier(llmClient domain.LLMClient, logger *zap.Logger) *SchemaIdentifier {
	return &SchemaIdentifier{
		llm:    llmClient,
		retry:  llm.DefaultRetryPolicy(),
		logger: logger,
	}
}

// Identify returns the best matching candidate, or nil when the model
// answers "Other" or something that is not a candidate name. Matching is
// case-insensitive on the schema name.
func (s *SchemaIdentifier) Identify(ctx context.Context, f *frame.Frame, candidates []*schema.Schema, rec decision.Recorder) (*schema.Schema, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var schemas strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&schemas, "<schema>\n  <name>%s</name>\n  <description>%s</description>\n</schema>\n", c.Name, c.Description)
	}
	prompt := fmt.Sprintf(llm.PromptSchemaIdentify, schemas.String(), frameHeadXML(f, identifySampleRows))

	var response string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = s.llm.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("identifying target schema: %w", err)
	}

	answer := cleanResponse(response)
	for _, c := range candidates {
		if strings.EqualFold(c.Name, answer) {
			rec.Record(decision.Message(decision.TypeSchemaIdentified, c.Name))
			return c, nil
		}
	}
	s.logger.Debug("no schema matched", zap.String("answer", answer))
	rec.Record(decision.Message(decision.TypeSchemaIdentified, "Other"))
	return nil, nil
}
