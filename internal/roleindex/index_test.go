package roleindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jonathan/resume-reviewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus() []types.CorpusRow {
	return []types.CorpusRow{
		{
			JobPosition:            "Backend Engineer",
			RelevantSkills:         "Python, SQL, Docker",
			RequiredQualifications: "Degree in computer science",
			JobResponsibilities:    "Design REST APIs and maintain PostgreSQL databases",
			IdealCandidateSummary:  "Pragmatic engineer who ships reliable services",
		},
		{
			JobPosition:            "Data Scientist",
			RelevantSkills:         "Pandas, Statistics, Machine Learning",
			RequiredQualifications: "Masters in statistics or mathematics",
			JobResponsibilities:    "Train machine learning models and analyze experiments",
			IdealCandidateSummary:  "Curious analyst comfortable with uncertainty",
		},
		{
			JobPosition:            "Frontend Developer",
			RelevantSkills:         "React, CSS, JavaScript",
			RequiredQualifications: "Portfolio of shipped web interfaces",
			JobResponsibilities:    "Build accessible user interfaces and design systems",
			IdealCandidateSummary:  "Detail oriented developer with an eye for UX",
		},
	}
}

func buildTestIndex(t *testing.T, rows []types.CorpusRow) *Index {
	t.Helper()
	ix, err := Build(context.Background(), rows, BuildOptions{})
	require.NoError(t, err)
	return ix
}

func TestGuidanceBlob(t *testing.T) {
	got := GuidanceBlob("Backend Engineer", []string{"Python", "SQL"}, "Q", "R", "S")
	assert.Equal(t, "Job Position: Backend Engineer\nSkills: Python, SQL\nQualifications: Q\nResponsibilities: R\nSummary: S", got)
}

func TestNewRecord(t *testing.T) {
	rec, ok := NewRecord(types.CorpusRow{JobPosition: "  Backend  Engineer ", RelevantSkills: "Python, C#,, Node.js"})
	require.True(t, ok)
	assert.Equal(t, "Backend Engineer", rec.JobPosition)
	assert.Equal(t, "backendengineer", rec.JobPositionNorm)
	assert.Equal(t, []string{"Python", "C#", "Node.js"}, rec.Skills)
	assert.Equal(t, []string{"python", "csharp", "nodejs"}, rec.SkillsNorm)

	rec, ok = NewRecord(types.CorpusRow{JobPosition: "QA"})
	require.True(t, ok)
	assert.NotNil(t, rec.Skills)
	assert.Empty(t, rec.Skills)

	_, ok = NewRecord(types.CorpusRow{JobPosition: " \t ", RelevantSkills: "Go"})
	assert.False(t, ok)
}

func TestBuild_SkipsRowsWithoutPosition(t *testing.T) {
	rows := append(testCorpus(), types.CorpusRow{RelevantSkills: "Go"})
	ix := buildTestIndex(t, rows)
	assert.Equal(t, 3, ix.Len())
}

func TestBuild_NoUsableRows(t *testing.T) {
	_, err := Build(context.Background(), []types.CorpusRow{{JobPosition: ""}}, BuildOptions{})
	var be *BuildError
	require.ErrorAs(t, err, &be)
}

func TestIndex_NotLoaded(t *testing.T) {
	var ix *Index

	_, err := ix.Query(context.Background(), "text", 3)
	assert.ErrorIs(t, err, ErrIndexNotLoaded)

	_, _, err = ix.PredictRole("text")
	assert.ErrorIs(t, err, ErrClassifierNotLoaded)

	assert.Equal(t, 0, ix.Len())
	assert.Nil(t, ix.Roles())
	assert.Nil(t, ix.Lookup("anything"))
}

func TestIndex_QuerySelfIsTopMatch(t *testing.T) {
	ix := buildTestIndex(t, testCorpus())

	for _, rec := range ix.records {
		matches, err := ix.Query(context.Background(), rec.Text, 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, rec.JobPosition, matches[0].Record.JobPosition)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
		assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
		assert.GreaterOrEqual(t, matches[1].Score, matches[2].Score)
	}
}

func TestIndex_QueryKLargerThanIndex(t *testing.T) {
	ix := buildTestIndex(t, testCorpus())

	matches, err := ix.Query(context.Background(), "react css", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	matches, err = ix.Query(context.Background(), "react css", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_QueryReturnsCopies(t *testing.T) {
	ix := buildTestIndex(t, testCorpus())

	matches, err := ix.Query(context.Background(), "python", 1)
	require.NoError(t, err)
	matches[0].Record.Skills[0] = "mutated"

	again, err := ix.Query(context.Background(), "python", 1)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Record.Skills[0])
}

func TestIndex_PredictRole(t *testing.T) {
	ix := buildTestIndex(t, testCorpus())

	role, p, err := ix.PredictRole("Trained machine learning models with pandas and statistics")
	require.NoError(t, err)
	assert.Equal(t, "Data Scientist", role)
	assert.Greater(t, p, 1.0/3)
	assert.LessOrEqual(t, p, 1.0)

	role, _, err = ix.PredictRole("Built React user interfaces with CSS and JavaScript")
	require.NoError(t, err)
	assert.Equal(t, "Frontend Developer", role)
}

func TestIndex_SingleRoleScenario(t *testing.T) {
	rows := []types.CorpusRow{{JobPosition: "Backend Engineer", RelevantSkills: "Python, SQL, Docker"}}
	dir := t.TempDir()
	require.NoError(t, Save(buildTestIndex(t, rows), dir))

	res := Open(dir, nil)
	require.True(t, res.Available(), res.Message())

	text := "I built REST APIs in Python with Docker and PostgreSQL"
	role, p, err := res.Index.PredictRole(text)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", role)
	assert.Equal(t, 1.0, p)

	matches, err := res.Index.Query(context.Background(), text, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Backend Engineer", matches[0].Record.JobPosition)
}

func TestIndex_LookupRolesVocab(t *testing.T) {
	rows := append(testCorpus(), types.CorpusRow{JobPosition: "backend engineer", RelevantSkills: "Go"})
	ix := buildTestIndex(t, rows)

	recs := ix.Lookup("  BACKEND ENGINEER ")
	require.Len(t, recs, 2)
	assert.Equal(t, "Backend Engineer", recs[0].JobPosition)
	assert.Equal(t, []string{"Python", "SQL", "Docker"}, recs[0].Skills)
	assert.Equal(t, "backend engineer", recs[1].JobPosition)
	assert.Equal(t, []string{"Go"}, recs[1].Skills)

	recs[0].Skills[0] = "mutated"
	assert.Equal(t, "Python", ix.Lookup("Backend Engineer")[0].Skills[0])

	assert.Nil(t, ix.Lookup("Astronaut"))

	assert.Equal(t, []string{"Backend Engineer", "Data Scientist", "Frontend Developer", "backend engineer"}, ix.Roles())
	assert.Equal(t, []string{
		"css", "docker", "go", "javascript", "machinelearning", "pandas", "python", "react", "sql", "statistics",
	}, ix.SkillsVocab())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	built := buildTestIndex(t, testCorpus())
	require.NoError(t, Save(built, dir))

	res := Open(dir, NewHashingEmbedder(DefaultHashingDim))
	require.Equal(t, StatusLoaded, res.Status, res.Message())
	ix := res.Index

	assert.Equal(t, built.BuildID(), ix.BuildID())
	assert.Equal(t, built.EmbedderName(), ix.EmbedderName())
	assert.Len(t, ix.Roles(), 3)
	assert.Equal(t, built.records, ix.records)
	assert.Contains(t, res.Message(), "3 roles")

	for _, rec := range ix.records {
		matches, err := ix.Query(context.Background(), rec.Text, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, rec.JobPosition, matches[0].Record.JobPosition)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	}

	text := "Design REST APIs with Python"
	wantRole, wantP, _ := built.PredictRole(text)
	gotRole, gotP, err := ix.PredictRole(text)
	require.NoError(t, err)
	assert.Equal(t, wantRole, gotRole)
	assert.InDelta(t, wantP, gotP, 1e-12)
}

func TestOpen_NotFound(t *testing.T) {
	res := Open(t.TempDir(), nil)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.False(t, res.Available())
	assert.Contains(t, res.Message(), "knowledge base unavailable")

	var nf *NotFoundError
	assert.ErrorAs(t, res.Err, &nf)
}

func TestOpen_MissingArtifact(t *testing.T) {
	dir := t.TempDir()
	ix := buildTestIndex(t, testCorpus())
	require.NoError(t, Save(ix, dir))
	require.NoError(t, os.Remove(filepath.Join(dir, buildsDir, ix.BuildID(), classifierFile)))

	res := Open(dir, nil)
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestOpen_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, buildDir string)
	}{
		{"truncated vectors", func(t *testing.T, buildDir string) {
			p := filepath.Join(buildDir, vectorsFile)
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(p, data[:len(data)-4], 0o644))
		}},
		{"bad magic", func(t *testing.T, buildDir string) {
			p := filepath.Join(buildDir, vectorsFile)
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			copy(data, "XXXX")
			require.NoError(t, os.WriteFile(p, data, 0o644))
		}},
		{"records not json", func(t *testing.T, buildDir string) {
			require.NoError(t, os.WriteFile(filepath.Join(buildDir, recordsFile), []byte("{"), 0o644))
		}},
		{"records fail schema", func(t *testing.T, buildDir string) {
			require.NoError(t, os.WriteFile(filepath.Join(buildDir, recordsFile), []byte(`{"records": []}`), 0o644))
		}},
		{"classifier garbage", func(t *testing.T, buildDir string) {
			require.NoError(t, os.WriteFile(filepath.Join(buildDir, classifierFile), []byte(`{"classes": ["A"]}`), 0o644))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ix := buildTestIndex(t, testCorpus())
			require.NoError(t, Save(ix, dir))
			tt.mutate(t, filepath.Join(dir, buildsDir, ix.BuildID()))

			res := Open(dir, nil)
			assert.Equal(t, StatusCorrupt, res.Status)
			assert.Nil(t, res.Index)
			var ce *CorruptError
			assert.ErrorAs(t, res.Err, &ce)
		})
	}
}

func TestOpen_EmbedderMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(buildTestIndex(t, testCorpus()), dir))

	res := Open(dir, NewHashingEmbedder(128))
	assert.Equal(t, StatusCorrupt, res.Status)
	assert.Contains(t, res.Message(), "embedder")
}

func TestOpen_InvalidCurrent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, currentFile), []byte("../escape\n"), 0o644))

	res := Open(dir, nil)
	assert.Equal(t, StatusCorrupt, res.Status)
}

func TestSave_LockHeld(t *testing.T) {
	dir := t.TempDir()
	lock := filepath.Join(dir, lockFile)
	require.NoError(t, os.WriteFile(lock, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644))

	err := Save(buildTestIndex(t, testCorpus()), dir)
	assert.ErrorIs(t, err, ErrBuildInProgress)
	_, err = os.Stat(lock)
	assert.NoError(t, err, "a live lock is left alone")
}

func TestSave_StaleLockIsTakenOver(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, lock string)
	}{
		{
			name: "expired",
			setup: func(t *testing.T, lock string) {
				require.NoError(t, os.WriteFile(lock, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644))
				old := time.Now().Add(-2 * staleLockAge)
				require.NoError(t, os.Chtimes(lock, old, old))
			},
		},
		{
			name: "owner gone",
			setup: func(t *testing.T, lock string) {
				if runtime.GOOS == "windows" {
					t.Skip("signal 0 is unavailable on windows")
				}
				require.NoError(t, os.WriteFile(lock, []byte("2147483647\n2026-01-01T00:00:00Z\n"), 0o644))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			lock := filepath.Join(dir, lockFile)
			tt.setup(t, lock)

			ix := buildTestIndex(t, testCorpus())
			require.NoError(t, Save(ix, dir))

			id, err := readCurrent(dir)
			require.NoError(t, err)
			assert.Equal(t, ix.BuildID(), id)
			_, err = os.Stat(lock)
			assert.True(t, errors.Is(err, os.ErrNotExist), "lock should be released")
		})
	}
}

func TestLockIsStale(t *testing.T) {
	dir := t.TempDir()
	lock := filepath.Join(dir, lockFile)

	assert.False(t, lockIsStale(lock, time.Now()), "missing lock")

	require.NoError(t, os.WriteFile(lock, []byte("not a pid\n"), 0o644))
	assert.False(t, lockIsStale(lock, time.Now()))
	assert.True(t, lockIsStale(lock, time.Now().Add(staleLockAge+time.Minute)))
}

func TestSave_PrunesOldBuilds(t *testing.T) {
	dir := t.TempDir()
	var last *Index
	for i := 0; i < 3; i++ {
		last = buildTestIndex(t, testCorpus())
		require.NoError(t, Save(last, dir))
	}

	entries, err := os.ReadDir(filepath.Join(dir, buildsDir))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = os.Stat(filepath.Join(dir, lockFile))
	assert.True(t, errors.Is(err, os.ErrNotExist), "lock should be released")

	res := Open(dir, nil)
	require.True(t, res.Available())
	assert.Equal(t, last.BuildID(), res.Index.BuildID())
}

func TestSave_Nil(t *testing.T) {
	var be *BuildError
	assert.ErrorAs(t, Save(nil, t.TempDir()), &be)
}
