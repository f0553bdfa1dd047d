package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

const mockDimensions = 8

// MockClient returns deterministic embeddings for testing. By default a
// text maps to a unit vector derived from its hash; set Vectors to pin
// specific texts to specific embeddings.
type MockClient struct {
	Vectors    map[string][]float32
	EmbedError error

	mu    sync.Mutex
	calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{Vectors: make(map[string][]float32)}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls = append(c.calls, text)
	c.mu.Unlock()

	if c.EmbedError != nil {
		return nil, c.EmbedError
	}
	if v, ok := c.Vectors[text]; ok {
		return v, nil
	}
	return hashVector(text), nil
}

func (c *MockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Calls returns a snapshot of every text embedded so far.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func hashVector(text string) []float32 {
	v := make([]float32, mockDimensions)
	var norm float64
	for i := range v {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		// spread hash values into [-1, 1)
		v[i] = float32(int32(h.Sum32())) / math.MaxInt32
		norm += float64(v[i]) * float64(v[i])
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}
