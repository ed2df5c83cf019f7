package roleindex

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/jonathan/resume-reviewer/internal/llm"
	"github.com/jonathan/resume-reviewer/internal/parsing"
	"golang.org/x/sync/errgroup"
)

// Embedder turns texts into L2-normalized vectors of a fixed dimension.
type Embedder interface {
	// Name identifies the embedding model; it is stored with the artifacts
	// and must match at load time.
	Name() string
	Dim() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder kinds accepted by NewEmbedder.
const (
	EmbedderHashing = "hashing"
	EmbedderGemini  = "gemini"
)

// DefaultHashingDim is the bucket count of the default hashing embedder.
const DefaultHashingDim = 512

// geminiEmbeddingDim is the output size of text-embedding-004.
const geminiEmbeddingDim = 768

const (
	embedChunkSize   = 32
	embedConcurrency = 4
)

// NewEmbedder builds the embedder selected by kind. client is only needed
// for remote embedders.
func NewEmbedder(kind string, dim int, client llm.Client) (Embedder, error) {
	switch kind {
	case "", EmbedderHashing:
		return NewHashingEmbedder(dim), nil
	case EmbedderGemini:
		if client == nil {
			return nil, fmt.Errorf("embedder %q requires an LLM client", kind)
		}
		return NewGeminiEmbedder(client), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", kind)
	}
}

// HashingEmbedder is an offline, deterministic embedder using signed feature
// hashing of word unigrams, word bigrams and character trigrams.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder with dim buckets. A
// non-positive dim selects DefaultHashingDim.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultHashingDim
	}
	return &HashingEmbedder{dim: dim}
}

// Name implements Embedder.
func (h *HashingEmbedder) Name() string {
	return fmt.Sprintf("%s-%d", EmbedderHashing, h.dim)
}

// Dim implements Embedder.
func (h *HashingEmbedder) Dim() int {
	return h.dim
}

// Embed implements Embedder. Text with no features maps to the zero vector.
func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embedOne(t)
	}
	return out, nil
}

func (h *HashingEmbedder) embedOne(text string) []float32 {
	counts := make(map[string]int)
	words := hashingWords(text)
	for i, w := range words {
		counts["w:"+w]++
		if i > 0 {
			counts["b:"+words[i-1]+" "+w]++
		}
		padded := []rune(" " + w + " ")
		for j := 0; j+3 <= len(padded); j++ {
			counts["c:"+string(padded[j:j+3])]++
		}
	}

	vec := make([]float32, h.dim)
	for feature, tf := range counts {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(feature))
		sum := hasher.Sum64()
		bucket := int(sum % uint64(h.dim))
		weight := float32(1 + math.Log(float64(tf)))
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[bucket] += weight
	}
	normalize(vec)
	return vec
}

// hashingWords splits text on whitespace and normalizes each word.
func hashingWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := parsing.NormalizeToken(f); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// GeminiEmbedder embeds text with the Gemini embedding model.
type GeminiEmbedder struct {
	client llm.Client
}

// NewGeminiEmbedder creates an embedder backed by client.
func NewGeminiEmbedder(client llm.Client) *GeminiEmbedder {
	return &GeminiEmbedder{client: client}
}

// Name implements Embedder.
func (g *GeminiEmbedder) Name() string {
	return EmbedderGemini + ":" + g.client.GetModel(llm.TierEmbedding)
}

// Dim implements Embedder.
func (g *GeminiEmbedder) Dim() int {
	return geminiEmbeddingDim
}

// Embed implements Embedder. Vectors are re-normalized locally.
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := g.client.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, v := range vecs {
		if len(v) != geminiEmbeddingDim {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), geminiEmbeddingDim)
		}
		normalize(v)
	}
	return vecs, nil
}

// embedAll embeds texts in chunks with bounded concurrency, preserving order.
func embedAll(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += embedChunkSize {
		start := start
		end := min(start+embedChunkSize, len(texts))
		g.Go(func() error {
			vecs, err := e.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed rows %d-%d: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embed rows %d-%d: got %d vectors", start, end, len(vecs))
			}
			for i, v := range vecs {
				if len(v) != e.Dim() {
					return fmt.Errorf("embed row %d: dimension %d, want %d", start+i, len(v), e.Dim())
				}
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize scales v to unit length in place; zero vectors are left as is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
