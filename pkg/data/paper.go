package data

import (
	"database/sql"
	"errors"
	"fmt"
)

const (
	insertPaperSQL = `INSERT INTO paper (
			id,
			doi,
			title,
			source_weight,
			transparency,
			sample_size,
			reproductions,
			cv_error,
			citations,
			published
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			doi = EXCLUDED.doi,
			title = EXCLUDED.title,
			source_weight = EXCLUDED.source_weight,
			transparency = EXCLUDED.transparency,
			sample_size = EXCLUDED.sample_size,
			reproductions = EXCLUDED.reproductions,
			cv_error = EXCLUDED.cv_error,
			citations = EXCLUDED.citations,
			published = EXCLUDED.published
	`

	selectPaperSQL = `SELECT
			id,
			COALESCE(doi, ''),
			COALESCE(title, ''),
			source_weight,
			transparency,
			sample_size,
			reproductions,
			cv_error,
			citations,
			published
		FROM paper
		WHERE id = ?
	`

	selectPapersSQL = `SELECT
			id,
			COALESCE(doi, ''),
			COALESCE(title, ''),
			source_weight,
			transparency,
			sample_size,
			reproductions,
			cv_error,
			citations,
			published
		FROM paper
		ORDER BY id
	`
)

// Paper is the provenance record behind one or more measurements: where
// the data came from and the statistical priors of its credibility.
type Paper struct {
	ID            string  `json:"id" yaml:"id"`
	DOI           string  `json:"doi,omitempty" yaml:"doi,omitempty"`
	Title         string  `json:"title,omitempty" yaml:"title,omitempty"`
	SourceWeight  float64 `json:"source_weight" yaml:"source_weight"`
	Transparency  float64 `json:"transparency" yaml:"transparency"`
	SampleSize    int     `json:"sample_size" yaml:"sample_size"`
	Reproductions int     `json:"reproductions" yaml:"reproductions"`
	CVError       float64 `json:"cv_error" yaml:"cv_error"`
	Citations     int     `json:"citations" yaml:"citations"`
	Published     float64 `json:"published" yaml:"published"`
}

// SavePapers upserts the batch in a single transaction.
func SavePapers(db *DB, list []*Paper) error {
	if db == nil {
		return errDBNotInitialized
	}
	if len(list) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(db.rebind(insertPaperSQL))
	if err != nil {
		return fmt.Errorf("failed to prepare paper insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range list {
		if _, err := stmt.Exec(
			p.ID, p.DOI, p.Title,
			p.SourceWeight, p.Transparency, p.SampleSize,
			p.Reproductions, p.CVError, p.Citations, p.Published,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("failed to rollback transaction: %w", rbErr)
			}
			return fmt.Errorf("failed to insert paper %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPaper returns the paper with the given id, or nil when unknown.
func GetPaper(db *DB, id string) (*Paper, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	p := &Paper{}
	err := db.QueryRow(db.rebind(selectPaperSQL), id).Scan(
		&p.ID, &p.DOI, &p.Title,
		&p.SourceWeight, &p.Transparency, &p.SampleSize,
		&p.Reproductions, &p.CVError, &p.Citations, &p.Published,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select paper %s: %w", id, err)
	}
	return p, nil
}

// ListPapers returns all known papers ordered by id.
func ListPapers(db *DB) ([]*Paper, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectPapersSQL)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to execute paper select: %w", err)
	}
	defer rows.Close()

	list := make([]*Paper, 0)
	for rows.Next() {
		p := &Paper{}
		if err := rows.Scan(
			&p.ID, &p.DOI, &p.Title,
			&p.SourceWeight, &p.Transparency, &p.SampleSize,
			&p.Reproductions, &p.CVError, &p.Citations, &p.Published,
		); err != nil {
			return nil, fmt.Errorf("failed to scan paper row: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate paper rows: %w", err)
	}
	return list, nil
}
