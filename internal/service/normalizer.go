package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/frame"
	"github.com/concordbio/concord/internal/llm"
)

const (
	// classifySampleSize caps how many distinct values are shown to the
	// model when deciding free text vs identifiers or picking a prefix.
	classifySampleSize = 10
	prefixSampleSize   = 5
	retrievalTopK      = 10

	// exactMatchThreshold short-circuits classification when retrieval
	// already found a (near) exact match.
	exactMatchThreshold = 0.999
)

// Normalizer resolves columns of raw mentions to canonical ontology
// entity ids, via dense retrieval for free text and xref lookup for
// identifiers.
type Normalizer struct {
	store     domain.OntologyStore
	retriever *OntologyRetriever
	llm       domain.LLMClient
	retry     llm.RetryPolicy
	logger    *zap.Logger
}

func NewNormalizer(store domain.OntologyStore, embedder domain.EmbeddingClient, llmClient domain.LLMClient, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		store:     store,
		retriever: NewOntologyRetriever(store, embedder),
		llm:       llmClient,
		retry:     llm.DefaultRetryPolicy(),
		logger:    logger,
	}
}

// NormalizeColumn resolves every distinct mention in the column and
// returns a series of entity ids aligned with the input rows. Mentions
// that resolve to nothing become null. Resolved mentions are recorded on
// the column's alignment decision before returning.
func (n *Normalizer) NormalizeColumn(ctx context.Context, col frame.Series, types []domain.EntityType, algo domain.NormalizationAlgorithm, rec decision.Recorder) (frame.Series, error) {
	if col.AllNull() {
		return col, nil
	}

	mentions := col.DistinctNonNull()
	freeText, err := n.isFreeText(ctx, col.Name, mentions)
	if err != nil {
		return frame.Series{}, fmt.Errorf("classifying column %q: %w", col.Name, err)
	}

	var mappings []domain.Mapping
	var mappingType decision.MappingType
	if freeText {
		mappingType = decision.MappingFreeText
		mappings, err = n.normalizeFreeText(ctx, mentions, types, algo)
	} else {
		mappingType = decision.MappingXref
		mappings, err = n.normalizeIdentifiers(ctx, col.Name, mentions, types)
	}
	if err != nil {
		return frame.Series{}, fmt.Errorf("normalizing column %q: %w", col.Name, err)
	}

	rec.RecordColumnOp(col.Name, decision.MappingOp(mappingType, mappings))

	byMention := make(map[string]string, len(mappings))
	for _, m := range mappings {
		byMention[m.Mention] = m.EntityID
	}
	values := make([]frame.Value, len(col.Values))
	for i, v := range col.Values {
		if v.IsNull() {
			values[i] = frame.Null()
			continue
		}
		if id, ok := byMention[v.Display()]; ok {
			values[i] = frame.String(id)
		} else {
			values[i] = frame.Null()
		}
	}
	return frame.NewSeries(col.Name, values...), nil
}

// isFreeText asks the model whether the column holds prose or
// identifiers, from a small sample of distinct values. Anything but a
// clear "free text" answer counts as identifiers.
func (n *Normalizer) isFreeText(ctx context.Context, column string, mentions []string) (bool, error) {
	sample := mentions
	if len(sample) > classifySampleSize {
		sample = sample[:classifySampleSize]
	}
	prompt := fmt.Sprintf(llm.PromptFreeText, renderEntries(sample))

	var response string
	err := n.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = n.llm.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return false, err
	}
	freeText := strings.EqualFold(cleanResponse(response), "free text")
	n.logger.Debug("column classified",
		zap.String("column", column),
		zap.Bool("free_text", freeText))
	return freeText, nil
}

// normalizeFreeText dense-retrieves candidates per mention and, for the
// classification algorithm, re-ranks them with one model call per
// mention, batched. Mapping order follows mention order regardless of
// call completion order.
func (n *Normalizer) normalizeFreeText(ctx context.Context, mentions []string, types []domain.EntityType, algo domain.NormalizationAlgorithm) ([]domain.Mapping, error) {
	topK := 1
	if algo != domain.AlgorithmRetrieval {
		topK = retrievalTopK
	}
	candidates, err := n.retriever.Retrieve(ctx, mentions, topK, types)
	if err != nil {
		return nil, err
	}

	chosen := make([]int, len(mentions))
	if algo != domain.AlgorithmRetrieval {
		if err := n.classify(ctx, mentions, candidates, chosen); err != nil {
			return nil, err
		}
	}

	mappings := make([]domain.Mapping, 0, len(mentions))
	for i, mention := range mentions {
		if len(candidates[i]) == 0 {
			n.logger.Warn("no candidates retrieved", zap.String("mention", mention))
			continue
		}
		match := candidates[i][chosen[i]]
		mappings = append(mappings, newMapping(mention, match.ID, match.Name, types, match.Similarity))
	}
	return mappings, nil
}

// classify fills chosen[i] with the index of the candidate the model
// picks for mention i. Near-exact retrieval hits skip the model call.
func (n *Normalizer) classify(ctx context.Context, mentions []string, candidates [][]domain.EntityMatch, chosen []int) error {
	var prompts []string
	var pending []int
	for i, matches := range candidates {
		if len(matches) == 0 || matches[0].Similarity >= exactMatchThreshold {
			continue
		}
		prompts = append(prompts, fmt.Sprintf(llm.PromptEntitySelect, mentions[i], renderCandidates(matches)))
		pending = append(pending, i)
	}
	if len(prompts) == 0 {
		return nil
	}

	answers, err := llm.CompleteBatch(ctx, n.llm, prompts, n.retry)
	if err != nil {
		return err
	}
	for k, answer := range answers {
		i := pending[k]
		name := cleanResponse(answer)
		found := false
		for j, match := range candidates[i] {
			if match.Name == name {
				chosen[i] = j
				found = true
				break
			}
		}
		if !found {
			n.logger.Warn("model picked an unknown candidate, falling back to top similarity",
				zap.String("mention", mentions[i]),
				zap.String("answer", name))
		}
	}
	return nil
}

var curiePrefixPattern = regexp.MustCompile(`^(.+?):`)

// normalizeIdentifiers joins the column's values against the exploded
// xref table. Bare identifiers get a CURIE prefix chosen by the model
// from the prefixes present in the ontology.
func (n *Normalizer) normalizeIdentifiers(ctx context.Context, column string, mentions []string, types []domain.EntityType) ([]domain.Mapping, error) {
	xrefs, err := n.store.LoadXrefs(ctx, types)
	if err != nil {
		return nil, fmt.Errorf("loading xrefs: %w", err)
	}

	// Keep the first entity per xref when several collide. Which entity
	// wins is load order; see the open question in DESIGN.md.
	byXref := make(map[string]domain.XrefRow, len(xrefs))
	var prefixes []string
	seenPrefix := make(map[string]struct{})
	for _, row := range xrefs {
		if _, ok := byXref[row.Xref]; !ok {
			byXref[row.Xref] = row
		}
		if m := curiePrefixPattern.FindStringSubmatch(row.Xref); m != nil {
			if _, ok := seenPrefix[m[1]]; !ok {
				seenPrefix[m[1]] = struct{}{}
				prefixes = append(prefixes, m[1])
			}
		}
	}

	prefix := ""
	if len(prefixes) > 0 && !hasCuriePrefix(mentions) {
		prefix, err = n.inferPrefix(ctx, column, mentions, prefixes)
		if err != nil {
			return nil, err
		}
	}

	mappings := make([]domain.Mapping, 0, len(mentions))
	for _, mention := range mentions {
		key := mention
		if prefix != "" {
			key = prefix + ":" + mention
		}
		row, ok := byXref[key]
		if !ok {
			continue
		}
		mappings = append(mappings, newMapping(mention, row.EntityID, row.EntityName, types, 1.0))
	}
	return mappings, nil
}

// inferPrefix asks the model once which of the available prefixes turns
// the bare identifiers into CURIEs. An answer outside the offered set
// means no prefixing.
func (n *Normalizer) inferPrefix(ctx context.Context, column string, mentions []string, prefixes []string) (string, error) {
	sample := mentions
	if len(sample) > prefixSampleSize {
		sample = sample[:prefixSampleSize]
	}
	prompt := fmt.Sprintf(llm.PromptCuriePrefix, renderEntries(prefixes), column, renderEntries(sample))

	var response string
	err := n.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = n.llm.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return "", err
	}

	answer := cleanResponse(response)
	if answer == "" {
		return "", nil
	}
	for _, p := range prefixes {
		if p == answer {
			return p, nil
		}
	}
	n.logger.Warn("model picked an unknown prefix, proceeding without",
		zap.String("column", column),
		zap.String("answer", answer))
	return "", nil
}

func hasCuriePrefix(mentions []string) bool {
	for _, m := range mentions {
		if !curiePrefixPattern.MatchString(m) {
			return false
		}
	}
	return len(mentions) > 0
}

func newMapping(mention, entityID, entityName string, types []domain.EntityType, score float64) domain.Mapping {
	return domain.Mapping{
		EntityID:        entityID,
		Mention:         mention,
		Types:           types,
		EntityName:      entityName,
		Score:           score,
		NormalisedScore: (score + 1) / 2,
	}
}

func renderEntries(entries []string) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = "- " + e
	}
	return strings.Join(lines, "\n")
}

func renderCandidates(matches []domain.EntityMatch) string {
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "<entity>\n  <name>%s</name>\n", m.Name)
		if m.Description != "" {
			fmt.Fprintf(&b, "  <description>%s</description>\n", m.Description)
		}
		b.WriteString("</entity>\n")
	}
	return b.String()
}
