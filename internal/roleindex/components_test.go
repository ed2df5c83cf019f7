package roleindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashingEmbedder(t *testing.T) {
	e := NewHashingEmbedder(0)
	assert.Equal(t, DefaultHashingDim, e.Dim())
	assert.Equal(t, "hashing-512", e.Name())

	vecs, err := e.Embed(context.Background(), []string{
		"Python developer with Docker",
		"Python developer with Docker",
		"Pastry chef",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-5)
	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[1]), 1e-5)
	assert.Less(t, dot(vecs[0], vecs[2]), 0.5)
	assert.Equal(t, 0.0, norm(vecs[3]))
}

func TestHashingEmbedder_NormalizesTokens(t *testing.T) {
	e := NewHashingEmbedder(256)
	vecs, err := e.Embed(context.Background(), []string{"C# Node.js", "c# NODE.JS"})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], vecs[1])
}

func TestHashingEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashingEmbedder(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder("", 64, nil)
	require.NoError(t, err)
	assert.Equal(t, "hashing-64", e.Name())

	_, err = NewEmbedder(EmbedderGemini, 0, nil)
	assert.Error(t, err)

	_, err = NewEmbedder("word2vec", 0, nil)
	assert.Error(t, err)
}

type failingEmbedder struct{ HashingEmbedder }

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func TestEmbedAll(t *testing.T) {
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = fmt.Sprintf("role number %d", i)
	}
	e := NewHashingEmbedder(64)

	got, err := embedAll(context.Background(), e, texts)
	require.NoError(t, err)
	require.Len(t, got, 100)

	want, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = embedAll(context.Background(), &failingEmbedder{*NewHashingEmbedder(8)}, texts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestFlatIndex_Search(t *testing.T) {
	f := NewFlatIndex(2)
	require.NoError(t, f.Add([]float32{1, 0}, []float32{0, 1}, []float32{1, 0}, []float32{0.6, 0.8}))
	assert.Equal(t, 4, f.Len())

	scores, ids := f.Search([]float32{1, 0}, 3)
	assert.Equal(t, []int{0, 2, 3}, ids)
	assert.InDeltaSlice(t, []float32{1, 1, 0.6}, scores, 1e-6)

	_, ids = f.Search([]float32{0, 1}, 6)
	assert.Equal(t, []int{1, 3, 0, 2, -1, -1}, ids)

	scores, ids = f.Search([]float32{1}, 2)
	assert.Equal(t, []int{-1, -1}, ids)
	assert.Len(t, scores, 2)

	scores, ids = f.Search([]float32{1, 0}, 0)
	assert.Nil(t, scores)
	assert.Nil(t, ids)
}

func TestFlatIndex_AddDimMismatch(t *testing.T) {
	f := NewFlatIndex(3)
	err := f.Add([]float32{1, 2, 3}, []float32{1, 2})
	require.Error(t, err)
	assert.Equal(t, 0, f.Len(), "no partial adds")

	require.NoError(t, f.Add([]float32{1, 2, 3}))
	v := f.Vector(0)
	v[0] = 9
	assert.Equal(t, []float32{1, 2, 3}, f.Vector(0))
}

func TestTokenizeNgrams(t *testing.T) {
	got := tokenizeNgrams("Built REST APIs, a C# app")
	assert.Equal(t, []string{"built", "rest", "apis", "app", "built rest", "rest apis", "apis app"}, got)
	assert.Nil(t, tokenizeNgrams("a b c"))
}

func TestTrainClassifier_SingleClass(t *testing.T) {
	c, err := TrainClassifier([]string{"python sql docker"}, []string{"Backend Engineer"}, TrainOptions{})
	require.NoError(t, err)

	role, p := c.Predict("anything at all")
	assert.Equal(t, "Backend Engineer", role)
	assert.Equal(t, 1.0, p)
}

func TestTrainClassifier_MultiClass(t *testing.T) {
	texts := []string{
		"python django postgres backend services",
		"react css typescript frontend components",
		"pandas numpy statistics regression models",
	}
	labels := []string{"Backend", "Frontend", "Data"}
	c, err := TrainClassifier(texts, labels, TrainOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Backend", "Data", "Frontend"}, c.Classes)
	for i := range c.Intercepts {
		assert.InDelta(t, 0, c.Intercepts[i], 1e-4, "classes with equal support share an intercept")
	}

	probs := c.PredictProba("react components with css")
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	tests := []struct {
		text string
		want string
	}{
		{"react components with css", "Frontend"},
		{"regression with pandas", "Data"},
		{"django backend", "Backend"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			role, p := c.Predict(tt.text)
			assert.Equal(t, tt.want, role)
			assert.Greater(t, p, 1.0/3)
		})
	}
}

func TestTrainClassifier_FitsTrainingDocuments(t *testing.T) {
	texts := []string{
		"go kubernetes grpc microservices",
		"figma wireframes usability research",
		"excel forecasting budgets variance",
	}
	labels := []string{"Platform", "Design", "Finance"}
	c, err := TrainClassifier(texts, labels, TrainOptions{Iterations: 5})
	require.NoError(t, err)

	for i, text := range texts {
		role, _ := c.Predict(text)
		assert.Equal(t, labels[i], role)
	}
}

func TestTrainClassifier_MaxFeatures(t *testing.T) {
	c, err := TrainClassifier([]string{"alpha alpha beta gamma", "alpha delta"}, []string{"A", "B"}, TrainOptions{MaxFeatures: 2, Iterations: 1})
	require.NoError(t, err)
	// alpha (3) wins outright; the 1-count tie resolves alphabetically
	assert.Equal(t, []string{"alpha", "alpha alpha"}, c.Terms)
	assert.InDelta(t, 1.0, c.IDF[0], 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, c.IDF[1], 1e-12)
}

func TestTrainClassifier_Errors(t *testing.T) {
	_, err := TrainClassifier(nil, nil, TrainOptions{})
	assert.Error(t, err)
	_, err = TrainClassifier([]string{"a"}, []string{"x", "y"}, TrainOptions{})
	assert.Error(t, err)
}

func TestClassifier_Validate(t *testing.T) {
	good := &Classifier{
		Classes:    []string{"A", "B"},
		Terms:      []string{"go"},
		IDF:        []float64{1},
		Weights:    [][]float64{{1}, {-1}},
		Intercepts: []float64{0, 0},
	}
	require.NoError(t, good.validate())

	bad := *good
	bad.Classes = []string{"B", "A"}
	assert.Error(t, bad.validate())

	bad = *good
	bad.Weights = [][]float64{{1}, {}}
	assert.Error(t, bad.validate())

	bad = *good
	bad.Terms = []string{"go", "go"}
	bad.IDF = []float64{1, 1}
	bad.Weights = [][]float64{{1, 1}, {1, 1}}
	assert.Error(t, bad.validate())

	assert.Error(t, (&Classifier{}).validate())
}
