package data

import (
	"database/sql"
	"fmt"
)

const (
	insertMeasurementSQL = `INSERT INTO measurement (
			material_id,
			paper_id,
			temp,
			seebeck,
			sigma,
			kappa,
			err_temp,
			err_seebeck,
			err_sigma,
			err_kappa
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (material_id, paper_id, temp) DO UPDATE SET
			seebeck = EXCLUDED.seebeck,
			sigma = EXCLUDED.sigma,
			kappa = EXCLUDED.kappa,
			err_temp = EXCLUDED.err_temp,
			err_seebeck = EXCLUDED.err_seebeck,
			err_sigma = EXCLUDED.err_sigma,
			err_kappa = EXCLUDED.err_kappa
	`

	selectMeasurementSQL = `SELECT
			material_id,
			paper_id,
			temp,
			seebeck,
			sigma,
			kappa,
			err_temp,
			err_seebeck,
			err_sigma,
			err_kappa
		FROM measurement
		ORDER BY material_id, paper_id, temp
	`

	selectMaterialMeasurementSQL = `SELECT
			material_id,
			paper_id,
			temp,
			seebeck,
			sigma,
			kappa,
			err_temp,
			err_seebeck,
			err_sigma,
			err_kappa
		FROM measurement
		WHERE material_id = ?
		ORDER BY material_id, paper_id, temp
	`

	countMeasurementSQL = `SELECT COUNT(*) FROM measurement`

	selectMaterialsSQL = `SELECT
			material_id,
			COUNT(*) AS observations,
			MIN(temp) AS temp_min,
			MAX(temp) AS temp_max
		FROM measurement
		WHERE material_id LIKE ?
		GROUP BY material_id
		ORDER BY material_id
		LIMIT ?
	`
)

// MaterialSummary is the per-material aggregate over the raw observations.
type MaterialSummary struct {
	MaterialID   string  `json:"material_id" yaml:"material_id"`
	Observations int     `json:"observations" yaml:"observations"`
	TempMin      float64 `json:"temp_min" yaml:"temp_min"`
	TempMax      float64 `json:"temp_max" yaml:"temp_max"`
}

// ListMaterials fuzzy-searches material ids and summarizes their
// temperature coverage. An empty query matches everything.
func ListMaterials(db *DB, like string, limit int) ([]*MaterialSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	rows, err := db.Query(db.rebind(selectMaterialsSQL), "%"+like+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	defer rows.Close()

	var list []*MaterialSummary
	for rows.Next() {
		m := &MaterialSummary{}
		if err := rows.Scan(&m.MaterialID, &m.Observations, &m.TempMin, &m.TempMax); err != nil {
			return nil, fmt.Errorf("failed to scan material summary: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Measurement is one transport observation at a single temperature point,
// with its reported standard uncertainties.
type Measurement struct {
	MaterialID string  `json:"material_id" yaml:"material_id"`
	PaperID    string  `json:"paper_id" yaml:"paper_id"`
	Temp       float64 `json:"temp" yaml:"temp"`
	Seebeck    float64 `json:"seebeck" yaml:"seebeck"`
	Sigma      float64 `json:"sigma" yaml:"sigma"`
	Kappa      float64 `json:"kappa" yaml:"kappa"`
	ErrTemp    float64 `json:"err_temp,omitempty" yaml:"err_temp,omitempty"`
	ErrSeebeck float64 `json:"err_seebeck,omitempty" yaml:"err_seebeck,omitempty"`
	ErrSigma   float64 `json:"err_sigma,omitempty" yaml:"err_sigma,omitempty"`
	ErrKappa   float64 `json:"err_kappa,omitempty" yaml:"err_kappa,omitempty"`
}

// SaveMeasurements upserts the batch in a single transaction. Either the
// whole batch lands or none of it does.
func SaveMeasurements(db *DB, list []*Measurement) error {
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

	stmt, err := tx.Prepare(db.rebind(insertMeasurementSQL))
	if err != nil {
		return fmt.Errorf("failed to prepare measurement insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range list {
		if _, err := stmt.Exec(
			m.MaterialID, m.PaperID, m.Temp,
			m.Seebeck, m.Sigma, m.Kappa,
			m.ErrTemp, m.ErrSeebeck, m.ErrSigma, m.ErrKappa,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("failed to rollback transaction: %w", rbErr)
			}
			return fmt.Errorf("failed to insert measurement for %s: %w", m.MaterialID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListMeasurements returns every stored measurement ordered by material,
// paper and temperature. The ordering is what makes span grouping of the
// flat arrays downstream valid.
func ListMeasurements(db *DB) ([]*Measurement, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	return scanMeasurements(db, selectMeasurementSQL)
}

// ListMaterialMeasurements returns the measurements of one material.
func ListMaterialMeasurements(db *DB, materialID string) ([]*Measurement, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	return scanMeasurements(db, selectMaterialMeasurementSQL, materialID)
}

// CountMeasurements returns the stored observation count.
func CountMeasurements(db *DB) (int, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	var n int
	if err := db.QueryRow(countMeasurementSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count measurements: %w", err)
	}
	return n, nil
}

func scanMeasurements(db *DB, query string, args ...any) ([]*Measurement, error) {
	rows, err := db.Query(db.rebind(query), args...)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to execute measurement select: %w", err)
	}
	defer rows.Close()

	list := make([]*Measurement, 0)
	for rows.Next() {
		m := &Measurement{}
		if err := rows.Scan(
			&m.MaterialID, &m.PaperID, &m.Temp,
			&m.Seebeck, &m.Sigma, &m.Kappa,
			&m.ErrTemp, &m.ErrSeebeck, &m.ErrSigma, &m.ErrKappa,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measurement row: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measurement rows: %w", err)
	}
	return list, nil
}
