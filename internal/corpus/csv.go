package corpus

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jonathan/resume-reviewer/internal/types"
)

// Corpus column names.
const (
	ColJobPosition            = "job_position"
	ColRelevantSkills         = "relevant_skills"
	ColRequiredQualifications = "required_qualifications"
	ColJobResponsibilities    = "job_responsibilities"
	ColIdealCandidateSummary  = "ideal_candidate_summary"
)

// ReadFile reads a corpus CSV from disk.
func ReadFile(path string) ([]types.CorpusRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Message: "failed to open corpus", Cause: err}
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		var re *ReadError
		if errors.As(err, &re) {
			re.Path = path
		}
		return nil, err
	}
	return rows, nil
}

// Read parses a corpus CSV with a header row. Columns are matched by name
// (case-insensitive, surrounding space ignored) so extra columns and any
// column order are accepted. Missing columns and cells read as "".
func Read(r io.Reader) ([]types.CorpusRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ReadError{Message: "corpus is empty"}
	}
	if err != nil {
		return nil, &ReadError{Line: 1, Message: "failed to read header", Cause: err}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	if _, ok := cols[ColJobPosition]; !ok {
		return nil, &ReadError{Line: 1, Message: "missing required column " + ColJobPosition}
	}

	var rows []types.CorpusRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			re := &ReadError{Message: "malformed row", Cause: err}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				re.Line = pe.StartLine
			}
			return nil, re
		}
		if isBlank(rec) {
			continue
		}
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		rows = append(rows, types.CorpusRow{
			JobPosition:            cell(ColJobPosition),
			RelevantSkills:         cell(ColRelevantSkills),
			RequiredQualifications: cell(ColRequiredQualifications),
			JobResponsibilities:    cell(ColJobResponsibilities),
			IdealCandidateSummary:  cell(ColIdealCandidateSummary),
		})
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
