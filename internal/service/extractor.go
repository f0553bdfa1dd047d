package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/llm"
	"github.com/concordbio/concord/internal/schema"
)

const (
	// chunkSize is the target chunk length in characters. Chunks end on
	// sentence boundaries so a boundary sentence is never split.
	chunkSize      = 1000
	extractionTopK = 10
	noAnswerMarker = "none"
)

// PassageExtractor answers questions against free-text context passages
// using retrieval-augmented generation: chunk, embed, retrieve the
// closest chunks, then ask the model for a cited answer.
type PassageExtractor struct {
	embedder domain.EmbeddingClient
	llm      domain.LLMClient
	retry    llm.RetryPolicy
	logger   *zap.Logger
}

var _ schema.Extractor = (*PassageExtractor)(nil)

func NewPassageExtractor(embedder domain.EmbeddingClient, llmClient domain.LLMClient, logger *zap.Logger) *PassageExtractor {
	return &PassageExtractor{
		embedder: embedder,
		llm:      llmClient,
		retry:    llm.DefaultRetryPolicy(),
		logger:   logger,
	}
}

// Extract answers the question from the passages. An answer of "None"
// yields an empty Extraction without error; the caller decides whether a
// missing answer is acceptable.
func (e *PassageExtractor) Extract(ctx context.Context, passages []string, question string) (*schema.Extraction, error) {
	chunks := chunkPassages(passages, chunkSize)
	if len(chunks) == 0 {
		return &schema.Extraction{}, nil
	}

	index, err := BuildPassageIndex(ctx, e.embedder, chunks)
	if err != nil {
		return nil, err
	}
	retrieved, err := index.Retrieve(ctx, question, extractionTopK)
	if err != nil {
		return nil, err
	}

	var contextBlock strings.Builder
	for _, chunk := range retrieved {
		fmt.Fprintf(&contextBlock, "<ctx index=%d>\n%s\n</ctx>\n", chunk.Index, chunk.Text)
	}
	prompt := fmt.Sprintf(llm.PromptPassageAnswer, contextBlock.String(), question)

	var response string
	err = e.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = e.llm.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("answering %q: %w", question, err)
	}

	answer, cited := parseCitedAnswer(response)
	if answer == "" || strings.EqualFold(answer, noAnswerMarker) {
		e.logger.Debug("no answer found in context", zap.String("question", question))
		return &schema.Extraction{}, nil
	}

	extraction := &schema.Extraction{Answer: answer}
	for _, index := range cited {
		if index < 0 || index >= len(chunks) {
			e.logger.Warn("citation out of range", zap.Int("index", index), zap.Int("chunks", len(chunks)))
			continue
		}
		extraction.References = append(extraction.References, schema.Reference{Text: chunks[index]})
	}
	return extraction, nil
}

var citationPattern = regexp.MustCompile(`\[\[([0-9,\s]+)\]\]`)

// parseCitedAnswer splits a model response into the answer text and the
// chunk indices cited in [[n]] or [[n,m]] markers.
func parseCitedAnswer(response string) (string, []int) {
	var cited []int
	for _, match := range citationPattern.FindAllStringSubmatch(response, -1) {
		for _, part := range strings.Split(match[1], ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				cited = append(cited, n)
			}
		}
	}
	answer := citationPattern.ReplaceAllString(response, "")
	return cleanResponse(answer), cited
}

var sentenceBoundary = regexp.MustCompile(`(?s)(.*?[.!?])(\s+|$)`)

// chunkPassages splits each passage into chunks of roughly the target
// size, breaking only at sentence boundaries. A passage without sentence
// punctuation becomes a single chunk.
func chunkPassages(passages []string, target int) []string {
	var chunks []string
	for _, passage := range passages {
		passage = strings.TrimSpace(passage)
		if passage == "" {
			continue
		}
		sentences := sentenceBoundary.FindAllStringSubmatch(passage, -1)
		if len(sentences) == 0 {
			chunks = append(chunks, passage)
			continue
		}
		var current strings.Builder
		consumed := 0
		for _, m := range sentences {
			sentence := strings.TrimSpace(m[1])
			consumed += len(m[0])
			if current.Len() > 0 && current.Len()+len(sentence)+1 > target {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(sentence)
		}
		// Trailing text after the last sentence boundary.
		if rest := strings.TrimSpace(passage[consumed:]); rest != "" {
			if current.Len() > 0 && current.Len()+len(rest)+1 > target {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(rest)
		}
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
		}
	}
	return chunks
}

// cleanResponse strips the whitespace, quotes and backticks models tend
// to wrap short answers in.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"'")
	return strings.TrimSpace(s)
}
