//go:build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/jonathan/resume-reviewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := Connect(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

func TestIntegration_RoleCorpus_ReplaceAndList(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))

	rows := []types.CorpusRow{
		{JobPosition: "Backend Engineer", RelevantSkills: "Python, SQL, Docker"},
		{JobPosition: "Data Analyst", RelevantSkills: "SQL, Excel", IdealCandidateSummary: "Curious"},
	}
	n, err := db.ReplaceRoleCorpus(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := db.ListRoleCorpusRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	n, err = db.ReplaceRoleCorpus(ctx, rows[:1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = db.ListRoleCorpusRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows[:1], got)
}

func TestIntegration_RoleCorpus_NullColumns(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, err := db.ReplaceRoleCorpus(ctx, nil)
	require.NoError(t, err)
	_, err = db.pool.Exec(ctx, `INSERT INTO role_corpus (job_position) VALUES ('SRE')`)
	require.NoError(t, err)

	got, err := db.ListRoleCorpusRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.CorpusRow{{JobPosition: "SRE"}}, got)
}
