package data

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	insertRunSQL = `INSERT INTO run (id, created_at, result_hash, params)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			result_hash = EXCLUDED.result_hash,
			params = EXCLUDED.params
	`

	selectRunSQL = `SELECT id, created_at, result_hash, params
		FROM run WHERE id = ?
	`

	insertValidationSQL = `INSERT INTO validation (
			run_id, material_id, paper_id, temp, zt, zt_err, valid
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, material_id, paper_id, temp) DO UPDATE SET
			zt = EXCLUDED.zt,
			zt_err = EXCLUDED.zt_err,
			valid = EXCLUDED.valid
	`

	selectValidationSQL = `SELECT
			run_id, material_id, paper_id, temp, zt, zt_err, valid
		FROM validation
		WHERE run_id = ?
		ORDER BY material_id, paper_id, temp
	`

	insertScoreSQL = `INSERT INTO score (
			run_id, material_id, paper_id, temp,
			quality, quality_class, credibility, credibility_class, posterior
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, material_id, paper_id, temp) DO UPDATE SET
			quality = EXCLUDED.quality,
			quality_class = EXCLUDED.quality_class,
			credibility = EXCLUDED.credibility,
			credibility_class = EXCLUDED.credibility_class,
			posterior = EXCLUDED.posterior
	`

	selectScoreSQL = `SELECT
			run_id, material_id, paper_id, temp,
			quality, quality_class, credibility, credibility_class, posterior
		FROM score
		WHERE run_id = ?
		ORDER BY material_id, paper_id, temp
	`

	insertGapSQL = `INSERT INTO gap (
			run_id, material_id, entropy, kl_divergence, gap_score
		)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, material_id) DO UPDATE SET
			entropy = EXCLUDED.entropy,
			kl_divergence = EXCLUDED.kl_divergence,
			gap_score = EXCLUDED.gap_score
	`

	selectTopGapsSQL = `SELECT
			run_id, material_id, entropy, kl_divergence, gap_score
		FROM gap
		WHERE run_id = ?
		ORDER BY gap_score DESC, material_id
		LIMIT ?
	`

	insertRankingSQL = `INSERT INTO ranking (
			run_id, material_id, score, position
		)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, material_id) DO UPDATE SET
			score = EXCLUDED.score,
			position = EXCLUDED.position
	`

	selectTopRankingsSQL = `SELECT
			run_id, material_id, score, position
		FROM ranking
		WHERE run_id = ?
		ORDER BY position
		LIMIT ?
	`
)

// Run identifies one pipeline execution and its canonical result hash.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	ResultHash string    `json:"result_hash" yaml:"result_hash"`
	Params     string    `json:"params" yaml:"params"`
}

// ValidationRecord is the persisted per-observation validation outcome.
type ValidationRecord struct {
	RunID      string  `json:"run_id" yaml:"run_id"`
	MaterialID string  `json:"material_id" yaml:"material_id"`
	PaperID    string  `json:"paper_id" yaml:"paper_id"`
	Temp       float64 `json:"temp" yaml:"temp"`
	ZT         float64 `json:"zt" yaml:"zt"`
	ZTErr      float64 `json:"zt_err" yaml:"zt_err"`
	Valid      bool    `json:"valid" yaml:"valid"`
}

// ScoreRecord is the persisted per-observation scoring outcome.
type ScoreRecord struct {
	RunID            string  `json:"run_id" yaml:"run_id"`
	MaterialID       string  `json:"material_id" yaml:"material_id"`
	PaperID          string  `json:"paper_id" yaml:"paper_id"`
	Temp             float64 `json:"temp" yaml:"temp"`
	Quality          float64 `json:"quality" yaml:"quality"`
	QualityClass     string  `json:"quality_class" yaml:"quality_class"`
	Credibility      float64 `json:"credibility" yaml:"credibility"`
	CredibilityClass string  `json:"credibility_class" yaml:"credibility_class"`
	Posterior        float64 `json:"posterior" yaml:"posterior"`
}

// GapRecord is the persisted per-material coverage outcome.
type GapRecord struct {
	RunID        string  `json:"run_id" yaml:"run_id"`
	MaterialID   string  `json:"material_id" yaml:"material_id"`
	Entropy      float64 `json:"entropy" yaml:"entropy"`
	KLDivergence float64 `json:"kl_divergence" yaml:"kl_divergence"`
	GapScore     float64 `json:"gap_score" yaml:"gap_score"`
}

// RankRecord is the persisted per-material rank outcome. Position is
// 1-based and reflects the deterministic ordering at run time.
type RankRecord struct {
	RunID      string  `json:"run_id" yaml:"run_id"`
	MaterialID string  `json:"material_id" yaml:"material_id"`
	Score      float64 `json:"score" yaml:"score"`
	Position   int     `json:"position" yaml:"position"`
}

// SaveRun records a pipeline execution.
func SaveRun(db *DB, r *Run) error {
	if db == nil {
		return errDBNotInitialized
	}
	if _, err := db.Exec(db.rebind(insertRunSQL),
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.ResultHash, r.Params); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun returns the run with the given id, or nil when unknown.
func GetRun(db *DB, id string) (*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	r := &Run{}
	var created string
	err := db.QueryRow(db.rebind(selectRunSQL), id).Scan(&r.ID, &created, &r.ResultHash, &r.Params)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select run %s: %w", id, err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("failed to parse run timestamp %q: %w", created, err)
	}
	return r, nil
}

// SaveValidations upserts the batch in a single transaction.
func SaveValidations(db *DB, list []*ValidationRecord) error {
	return saveBatch(db, insertValidationSQL, len(list), func(i int) []any {
		v := list[i]
		return []any{v.RunID, v.MaterialID, v.PaperID, v.Temp, v.ZT, v.ZTErr, boolToInt(v.Valid)}
	})
}

// ListValidations returns the validation outcomes of one run.
func ListValidations(db *DB, runID string) ([]*ValidationRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(db.rebind(selectValidationSQL), runID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to execute validation select: %w", err)
	}
	defer rows.Close()

	list := make([]*ValidationRecord, 0)
	for rows.Next() {
		v := &ValidationRecord{}
		var valid int
		if err := rows.Scan(&v.RunID, &v.MaterialID, &v.PaperID, &v.Temp, &v.ZT, &v.ZTErr, &valid); err != nil {
			return nil, fmt.Errorf("failed to scan validation row: %w", err)
		}
		v.Valid = valid != 0
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate validation rows: %w", err)
	}
	return list, nil
}

// SaveScores upserts the batch in a single transaction.
func SaveScores(db *DB, list []*ScoreRecord) error {
	return saveBatch(db, insertScoreSQL, len(list), func(i int) []any {
		s := list[i]
		return []any{
			s.RunID, s.MaterialID, s.PaperID, s.Temp,
			s.Quality, s.QualityClass, s.Credibility, s.CredibilityClass, s.Posterior,
		}
	})
}

// ListScores returns the scoring outcomes of one run.
func ListScores(db *DB, runID string) ([]*ScoreRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(db.rebind(selectScoreSQL), runID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to execute score select: %w", err)
	}
	defer rows.Close()

	list := make([]*ScoreRecord, 0)
	for rows.Next() {
		s := &ScoreRecord{}
		if err := rows.Scan(
			&s.RunID, &s.MaterialID, &s.PaperID, &s.Temp,
			&s.Quality, &s.QualityClass, &s.Credibility, &s.CredibilityClass, &s.Posterior,
		); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate score rows: %w", err)
	}
	return list, nil
}

// SaveGaps upserts the batch in a single transaction.
func SaveGaps(db *DB, list []*GapRecord) error {
	return saveBatch(db, insertGapSQL, len(list), func(i int) []any {
		g := list[i]
		return []any{g.RunID, g.MaterialID, g.Entropy, g.KLDivergence, g.GapScore}
	})
}

// TopGaps returns the worst-covered materials of a run, highest gap
// score first.
func TopGaps(db *DB, runID string, limit int) ([]*GapRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(db.rebind(selectTopGapsSQL), runID, limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to execute gap select: %w", err)
	}
	defer rows.Close()

	list := make([]*GapRecord, 0)
	for rows.Next() {
		g := &GapRecord{}
		if err := rows.Scan(&g.RunID, &g.MaterialID, &g.Entropy, &g.KLDivergence, &g.GapScore); err != nil {
			return nil, fmt.Errorf("failed to scan gap row: %w", err)
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gap rows: %w", err)
	}
	return list, nil
}

// SaveRanks upserts the batch in a single transaction.
func SaveRanks(db *DB, list []*RankRecord) error {
	return saveBatch(db, insertRankingSQL, len(list), func(i int) []any {
		r := list[i]
		return []any{r.RunID, r.MaterialID, r.Score, r.Position}
	})
}

// TopRanks returns the best-ranked materials of a run in position order.
func TopRanks(db *DB, runID string, limit int) ([]*RankRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(db.rebind(selectTopRankingsSQL), runID, limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to execute ranking select: %w", err)
	}
	defer rows.Close()

	list := make([]*RankRecord, 0)
	for rows.Next() {
		r := &RankRecord{}
		if err := rows.Scan(&r.RunID, &r.MaterialID, &r.Score, &r.Position); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ranking rows: %w", err)
	}
	return list, nil
}

// saveBatch runs n parameterized inserts in one transaction.
func saveBatch(db *DB, query string, n int, args func(i int) []any) error {
	if db == nil {
		return errDBNotInitialized
	}
	if n == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(db.rebind(query))
	if err != nil {
		return fmt.Errorf("failed to prepare batch statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("failed to rollback transaction: %w", rbErr)
			}
			return fmt.Errorf("failed to execute batch statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
