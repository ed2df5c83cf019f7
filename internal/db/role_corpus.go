package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-reviewer/internal/types"
)

// ListRoleCorpusRows returns every corpus row in insertion order. NULL
// columns read as empty strings.
func (db *DB) ListRoleCorpusRows(ctx context.Context) ([]types.CorpusRow, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT job_position,
		        COALESCE(relevant_skills, ''),
		        COALESCE(required_qualifications, ''),
		        COALESCE(job_responsibilities, ''),
		        COALESCE(ideal_candidate_summary, '')
		 FROM role_corpus ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list role corpus: %w", err)
	}
	defer rows.Close()

	var out []types.CorpusRow
	for rows.Next() {
		var r types.CorpusRow
		if err := rows.Scan(&r.JobPosition, &r.RelevantSkills, &r.RequiredQualifications,
			&r.JobResponsibilities, &r.IdealCandidateSummary); err != nil {
			return nil, fmt.Errorf("failed to scan role corpus row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list role corpus: %w", err)
	}
	return out, nil
}

// ReplaceRoleCorpus replaces the whole corpus with rows in one transaction.
func (db *DB) ReplaceRoleCorpus(ctx context.Context, rows []types.CorpusRow) (int64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_corpus`); err != nil {
		return 0, fmt.Errorf("failed to clear role corpus: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"role_corpus"},
		[]string{"job_position", "relevant_skills", "required_qualifications", "job_responsibilities", "ideal_candidate_summary"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.JobPosition, r.RelevantSkills, r.RequiredQualifications, r.JobResponsibilities, r.IdealCandidateSummary}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy role corpus: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit role corpus: %w", err)
	}
	return n, nil
}
