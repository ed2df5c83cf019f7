package roleindex

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/optimize"
)

// Classifier defaults.
const (
	DefaultMaxFeatures = 30000
	DefaultC           = 1.0
	DefaultIterations  = 100

	// lbfgsStore is the number of correction pairs kept by L-BFGS.
	lbfgsStore = 8
)

var classifierTokenRe = regexp.MustCompile(`\b\w\w+\b`)

// TrainOptions tunes classifier fitting. Zero values select the defaults.
type TrainOptions struct {
	MaxFeatures int
	C           float64
	// Iterations caps the L-BFGS major iterations.
	Iterations int
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = DefaultMaxFeatures
	}
	if o.C <= 0 {
		o.C = DefaultC
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	return o
}

// Classifier is a TF-IDF (word 1-2 grams) + multinomial logistic regression
// role classifier. It is immutable after training and safe for concurrent use.
type Classifier struct {
	Classes    []string    `json:"classes"`
	Terms      []string    `json:"terms"`
	IDF        []float64   `json:"idf"`
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`

	vocab map[string]int
}

// sparseVec is a feature vector with sorted indices.
type sparseVec struct {
	idx []int
	val []float64
}

// tokenizeNgrams lowercases text and returns its word unigrams and bigrams.
func tokenizeNgrams(text string) []string {
	tokens := classifierTokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil
	}
	grams := make([]string, 0, 2*len(tokens)-1)
	grams = append(grams, tokens...)
	for i := 1; i < len(tokens); i++ {
		grams = append(grams, tokens[i-1]+" "+tokens[i])
	}
	return grams
}

// TrainClassifier fits the classifier on texts labeled with role names.
// Classes are the sorted distinct labels.
func TrainClassifier(texts, labels []string, opts TrainOptions) (*Classifier, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no training documents")
	}
	if len(texts) != len(labels) {
		return nil, fmt.Errorf("got %d texts but %d labels", len(texts), len(labels))
	}
	opts = opts.withDefaults()

	docs := make([][]string, len(texts))
	for i, t := range texts {
		docs[i] = tokenizeNgrams(t)
	}

	c := &Classifier{Classes: distinctSorted(labels)}
	c.fitVocabulary(docs, opts.MaxFeatures)

	classIdx := make(map[string]int, len(c.Classes))
	for i, name := range c.Classes {
		classIdx[name] = i
	}
	y := make([]int, len(labels))
	x := make([]sparseVec, len(docs))
	for i := range docs {
		y[i] = classIdx[labels[i]]
		x[i] = c.vectorize(docs[i])
	}

	c.Weights = make([][]float64, len(c.Classes))
	for k := range c.Weights {
		c.Weights[k] = make([]float64, len(c.Terms))
	}
	c.Intercepts = make([]float64, len(c.Classes))

	if len(c.Classes) > 1 {
		if err := c.fitLogistic(x, y, opts); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// fitVocabulary keeps the maxFeatures most frequent n-grams (ties broken
// alphabetically), orders them alphabetically and computes smoothed IDF.
func (c *Classifier) fitVocabulary(docs [][]string, maxFeatures int) {
	freq := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, g := range doc {
			freq[g]++
			if !seen[g] {
				seen[g] = true
				df[g]++
			}
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	if len(terms) > maxFeatures {
		sort.Slice(terms, func(a, b int) bool {
			if freq[terms[a]] != freq[terms[b]] {
				return freq[terms[a]] > freq[terms[b]]
			}
			return terms[a] < terms[b]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	c.Terms = terms
	c.IDF = make([]float64, len(terms))
	for i, t := range terms {
		c.IDF[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	c.buildVocab()
}

func (c *Classifier) buildVocab() {
	c.vocab = make(map[string]int, len(c.Terms))
	for i, t := range c.Terms {
		c.vocab[t] = i
	}
}

// vectorize maps n-grams to an L2-normalized TF-IDF vector.
func (c *Classifier) vectorize(grams []string) sparseVec {
	counts := make(map[int]float64)
	for _, g := range grams {
		if j, ok := c.vocab[g]; ok {
			counts[j]++
		}
	}
	v := sparseVec{idx: make([]int, 0, len(counts)), val: make([]float64, 0, len(counts))}
	for j := range counts {
		v.idx = append(v.idx, j)
	}
	sort.Ints(v.idx)

	var norm float64
	for _, j := range v.idx {
		w := counts[j] * c.IDF[j]
		v.val = append(v.val, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range v.val {
			v.val[i] /= norm
		}
	}
	return v
}

// fitLogistic minimizes the mean cross-entropy with an L2 penalty of
// 1/(2·C·N)·‖W‖² using L-BFGS. Intercepts are not penalized. The parameter
// vector holds the weight rows class by class, followed by the intercepts.
func (c *Classifier) fitLogistic(x []sparseVec, y []int, opts TrainOptions) error {
	k := len(c.Classes)
	f := len(c.Terms)
	n := float64(len(x))
	lambda := 1 / (opts.C * n)

	unpack := func(params []float64) {
		for cls := 0; cls < k; cls++ {
			c.Weights[cls] = params[cls*f : (cls+1)*f]
		}
		c.Intercepts = params[k*f:]
	}
	probs := make([]float64, k)

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			unpack(params)
			var loss float64
			for d, v := range x {
				c.probabilities(v, probs)
				loss -= math.Log(math.Max(probs[y[d]], 1e-300))
			}
			var reg float64
			for _, w := range params[:k*f] {
				reg += w * w
			}
			return loss/n + lambda/2*reg
		},
		Grad: func(grad, params []float64) {
			unpack(params)
			clear(grad)
			for d, v := range x {
				c.probabilities(v, probs)
				for cls := 0; cls < k; cls++ {
					g := probs[cls]
					if cls == y[d] {
						g--
					}
					grad[k*f+cls] += g / n
					row := grad[cls*f : (cls+1)*f]
					for i, j := range v.idx {
						row[j] += g * v.val[i] / n
					}
				}
			}
			for i, w := range params[:k*f] {
				grad[i] += lambda * w
			}
		},
	}

	result, err := optimize.Minimize(problem, make([]float64, k*(f+1)),
		&optimize.Settings{MajorIterations: opts.Iterations, GradientThreshold: 1e-6},
		&optimize.LBFGS{Store: lbfgsStore})
	if result == nil {
		return fmt.Errorf("failed to fit classifier: %w", err)
	}
	// result holds the best location found even when the line search stalls.
	params := append([]float64(nil), result.X...)
	unpack(params)
	return nil
}

// probabilities writes the softmax class probabilities of v into out.
func (c *Classifier) probabilities(v sparseVec, out []float64) {
	maxLogit := math.Inf(-1)
	for cls := range c.Classes {
		z := c.Intercepts[cls]
		w := c.Weights[cls]
		for i, j := range v.idx {
			z += w[j] * v.val[i]
		}
		out[cls] = z
		if z > maxLogit {
			maxLogit = z
		}
	}
	var sum float64
	for cls := range out {
		out[cls] = math.Exp(out[cls] - maxLogit)
		sum += out[cls]
	}
	for cls := range out {
		out[cls] /= sum
	}
}

// PredictProba returns the probability of every class for text, in Classes order.
func (c *Classifier) PredictProba(text string) []float64 {
	out := make([]float64, len(c.Classes))
	c.probabilities(c.vectorize(tokenizeNgrams(text)), out)
	return out
}

// Predict returns the most probable class and its probability. Ties go to
// the class that sorts first.
func (c *Classifier) Predict(text string) (string, float64) {
	probs := c.PredictProba(text)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return c.Classes[best], probs[best]
}

// validate checks that a deserialized classifier is internally consistent
// and rebuilds its vocabulary lookup.
func (c *Classifier) validate() error {
	if len(c.Classes) == 0 {
		return fmt.Errorf("classifier has no classes")
	}
	if !sort.StringsAreSorted(c.Classes) {
		return fmt.Errorf("classifier classes are not sorted")
	}
	if len(c.IDF) != len(c.Terms) {
		return fmt.Errorf("idf has %d entries for %d terms", len(c.IDF), len(c.Terms))
	}
	if len(c.Weights) != len(c.Classes) || len(c.Intercepts) != len(c.Classes) {
		return fmt.Errorf("weights/intercepts do not match %d classes", len(c.Classes))
	}
	for k, row := range c.Weights {
		if len(row) != len(c.Terms) {
			return fmt.Errorf("weight row %d has %d entries for %d terms", k, len(row), len(c.Terms))
		}
	}
	c.buildVocab()
	if len(c.vocab) != len(c.Terms) {
		return fmt.Errorf("classifier terms are not unique")
	}
	return nil
}

func distinctSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
