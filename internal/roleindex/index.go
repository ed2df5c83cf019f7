// Package roleindex holds the role knowledge base: an embedding index for
// retrieving role guidance and a lexical classifier for predicting a
// resume's role. Both models are built from the same corpus and persisted
// together.
package roleindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-reviewer/internal/ingestion"
	"github.com/jonathan/resume-reviewer/internal/logging"
	"github.com/jonathan/resume-reviewer/internal/parsing"
	"github.com/jonathan/resume-reviewer/internal/types"
	"github.com/sirupsen/logrus"
)

// Index is a built or loaded role knowledge base. It is never mutated after
// construction and is safe for concurrent use.
type Index struct {
	buildID  string
	builtAt  time.Time
	records  []types.RoleRecord
	flat     *FlatIndex
	clf      *Classifier
	embedder Embedder
}

// BuildOptions configures Build.
type BuildOptions struct {
	Embedder Embedder // defaults to a HashingEmbedder
	Train    TrainOptions
	Logger   logrus.FieldLogger
}

// GuidanceBlob assembles the guidance text for one role.
func GuidanceBlob(position string, skills []string, qualifications, responsibilities, summary string) string {
	return fmt.Sprintf("Job Position: %s\nSkills: %s\nQualifications: %s\nResponsibilities: %s\nSummary: %s",
		position, strings.Join(skills, ", "), qualifications, responsibilities, summary)
}

// NewRecord converts a corpus row into a role record. ok is false when the
// row has no job position.
func NewRecord(row types.CorpusRow) (rec types.RoleRecord, ok bool) {
	position := strings.TrimSpace(ingestion.CleanText(row.JobPosition))
	if position == "" {
		return types.RoleRecord{}, false
	}
	skills := parsing.SplitCSVList(ingestion.CleanText(row.RelevantSkills))
	if skills == nil {
		skills = []string{}
	}
	skillsNorm := make([]string, len(skills))
	for i, s := range skills {
		skillsNorm[i] = parsing.NormalizeToken(s)
	}

	return types.RoleRecord{
		JobPosition:     position,
		JobPositionNorm: parsing.NormalizeToken(position),
		Skills:          skills,
		SkillsNorm:      skillsNorm,
		Text: GuidanceBlob(position, skills,
			ingestion.CleanText(row.RequiredQualifications),
			ingestion.CleanText(row.JobResponsibilities),
			ingestion.CleanText(row.IdealCandidateSummary)),
	}, true
}

// Build embeds every corpus row, builds the flat similarity index and trains
// the role classifier. Rows without a job position are logged and skipped.
func Build(ctx context.Context, rows []types.CorpusRow, opts BuildOptions) (*Index, error) {
	log := logging.OrDiscard(opts.Logger)
	embedder := opts.Embedder
	if embedder == nil {
		embedder = NewHashingEmbedder(DefaultHashingDim)
	}

	records := make([]types.RoleRecord, 0, len(rows))
	for i, row := range rows {
		rec, ok := NewRecord(row)
		if !ok {
			log.WithField("row", i+1).Warn("skipping corpus row without job_position")
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, &BuildError{Message: "corpus has no usable rows"}
	}

	texts := make([]string, len(records))
	labels := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
		labels[i] = r.JobPosition
	}

	start := time.Now()
	vecs, err := embedAll(ctx, embedder, texts)
	if err != nil {
		return nil, &BuildError{Message: "failed to embed guidance text", Cause: err}
	}
	flat := NewFlatIndex(embedder.Dim())
	if err := flat.Add(vecs...); err != nil {
		return nil, &BuildError{Message: "failed to index embeddings", Cause: err}
	}
	log.WithFields(logrus.Fields{
		"records":  len(records),
		"embedder": embedder.Name(),
		"took_ms":  time.Since(start).Milliseconds(),
	}).Info("embedded role corpus")

	start = time.Now()
	clf, err := TrainClassifier(texts, labels, opts.Train)
	if err != nil {
		return nil, &BuildError{Message: "failed to train classifier", Cause: err}
	}
	log.WithFields(logrus.Fields{
		"classes":  len(clf.Classes),
		"features": len(clf.Terms),
		"took_ms":  time.Since(start).Milliseconds(),
	}).Info("trained role classifier")

	now := time.Now().UTC()
	return &Index{
		buildID:  newBuildID(now),
		builtAt:  now,
		records:  records,
		flat:     flat,
		clf:      clf,
		embedder: embedder,
	}, nil
}

func newBuildID(t time.Time) string {
	return t.Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

// BuildID returns the identifier of the build this index came from.
func (ix *Index) BuildID() string {
	if ix == nil {
		return ""
	}
	return ix.buildID
}

// BuiltAt returns when the index was built.
func (ix *Index) BuiltAt() time.Time {
	if ix == nil {
		return time.Time{}
	}
	return ix.builtAt
}

// EmbedderName returns the name of the embedder used for the index.
func (ix *Index) EmbedderName() string {
	if ix == nil || ix.embedder == nil {
		return ""
	}
	return ix.embedder.Name()
}

// Len returns the number of role records.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.records)
}

// Query returns up to k records nearest to text, most similar first.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]types.RoleMatch, error) {
	if ix == nil || ix.flat == nil || ix.embedder == nil {
		return nil, ErrIndexNotLoaded
	}
	if k <= 0 {
		return []types.RoleMatch{}, nil
	}

	vecs, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("failed to embed query: got %d vectors", len(vecs))
	}

	scores, ids := ix.flat.Search(vecs[0], k)
	matches := make([]types.RoleMatch, 0, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(ix.records) {
			continue
		}
		matches = append(matches, types.RoleMatch{
			Record: ix.records[id].Clone(),
			Score:  float64(scores[i]),
		})
	}
	return matches, nil
}

// PredictRole returns the most likely role for text and its probability.
func (ix *Index) PredictRole(text string) (string, float64, error) {
	if ix == nil || ix.clf == nil {
		return "", 0, ErrClassifierNotLoaded
	}
	role, p := ix.clf.Predict(text)
	return role, p, nil
}

// Lookup returns every record whose job position equals role, ignoring case
// and surrounding space, in corpus order. It returns nil when none match.
func (ix *Index) Lookup(role string) []types.RoleRecord {
	if ix == nil {
		return nil
	}
	role = strings.TrimSpace(role)
	var out []types.RoleRecord
	for _, r := range ix.records {
		if strings.EqualFold(r.JobPosition, role) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Roles returns the sorted distinct role names the classifier knows.
func (ix *Index) Roles() []string {
	if ix == nil {
		return nil
	}
	if ix.clf != nil {
		return append([]string(nil), ix.clf.Classes...)
	}
	names := make([]string, len(ix.records))
	for i, r := range ix.records {
		names[i] = r.JobPosition
	}
	return distinctSorted(names)
}

// SkillsVocab returns the sorted distinct normalized skills of all roles.
func (ix *Index) SkillsVocab() []string {
	if ix == nil {
		return nil
	}
	seen := make(map[string]bool)
	var vocab []string
	for _, r := range ix.records {
		for _, s := range r.SkillsNorm {
			if s != "" && !seen[s] {
				seen[s] = true
				vocab = append(vocab, s)
			}
		}
	}
	sort.Strings(vocab)
	return vocab
}
