// Package ingest parses measurement and paper exports into store records.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/thermognosis/thermopulse/pkg/data"
	"github.com/thermognosis/thermopulse/pkg/thermo"
)

// Measurement CSV columns. The four uncertainty columns are optional and
// default to zero when absent.
var (
	measurementRequired = []string{"mat_id", "paper_id", "temp", "seebeck", "sigma", "kappa"}
	measurementOptional = []string{"err_temp", "err_seebeck", "err_sigma", "err_kappa"}
)

// ReadMeasurementsFile parses a measurement CSV from disk.
func ReadMeasurementsFile(path string) ([]*data.Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open measurement file %s: %w", path, err)
	}
	defer f.Close()
	return ReadMeasurements(f)
}

// ReadMeasurements parses measurement rows. Rows outside the empirical
// plausibility bounds are skipped with a warning; rows whose thermal
// conductivity falls below the Wiedemann-Franz electronic floor are kept
// but flagged, since the penalty is the Bayesian layer's job.
func ReadMeasurements(r io.Reader) ([]*data.Measurement, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read measurement header: %w", err)
	}
	cols, err := indexColumns(header, measurementRequired)
	if err != nil {
		return nil, err
	}
	indexOptional(header, cols, measurementOptional)

	list := make([]*data.Measurement, 0)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read measurement row %d: %w", line, err)
		}

		m, err := parseMeasurement(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("invalid measurement row %d: %w", line, err)
		}

		if err := thermo.CheckEmpiricalBounds(m.Seebeck, m.Sigma, m.Kappa, m.Temp); err != nil {
			slog.Warn("skipping implausible measurement", "row", line, "material", m.MaterialID, "reason", err)
			continue
		}
		if thermo.WFPenalty(m.Sigma, m.Kappa, m.Temp, 1.0) > 0 {
			slog.Warn("measurement violates Wiedemann-Franz floor", "row", line, "material", m.MaterialID)
		}

		list = append(list, m)
	}
	return list, nil
}

func parseMeasurement(rec []string, cols map[string]int) (*data.Measurement, error) {
	m := &data.Measurement{
		MaterialID: strings.TrimSpace(field(rec, cols, "mat_id")),
		PaperID:    strings.TrimSpace(field(rec, cols, "paper_id")),
	}
	if m.MaterialID == "" {
		return nil, &thermo.MissingFieldError{Field: "mat_id"}
	}
	if m.PaperID == "" {
		return nil, &thermo.MissingFieldError{Field: "paper_id"}
	}

	var err error
	if m.Temp, err = parseFloat(rec, cols, "temp"); err != nil {
		return nil, err
	}
	if m.Seebeck, err = parseFloat(rec, cols, "seebeck"); err != nil {
		return nil, err
	}
	if m.Sigma, err = parseFloat(rec, cols, "sigma"); err != nil {
		return nil, err
	}
	if m.Kappa, err = parseFloat(rec, cols, "kappa"); err != nil {
		return nil, err
	}
	if m.ErrTemp, err = parseOptionalFloat(rec, cols, "err_temp"); err != nil {
		return nil, err
	}
	if m.ErrSeebeck, err = parseOptionalFloat(rec, cols, "err_seebeck"); err != nil {
		return nil, err
	}
	if m.ErrSigma, err = parseOptionalFloat(rec, cols, "err_sigma"); err != nil {
		return nil, err
	}
	if m.ErrKappa, err = parseOptionalFloat(rec, cols, "err_kappa"); err != nil {
		return nil, err
	}

	for _, u := range []float64{m.ErrTemp, m.ErrSeebeck, m.ErrSigma, m.ErrKappa} {
		if u < 0 {
			return nil, &thermo.ConstraintViolationError{Constraint: "uncertainties >= 0", Violations: 1}
		}
	}
	return m, nil
}

// Paper CSV columns. Only id is required.
var (
	paperRequired = []string{"id"}
	paperOptional = []string{
		"doi", "title", "source_weight", "transparency",
		"sample_size", "reproductions", "cv_error", "citations", "published",
	}
)

// ReadPapersFile parses a paper provenance CSV from disk.
func ReadPapersFile(path string) ([]*data.Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open paper file %s: %w", path, err)
	}
	defer f.Close()
	return ReadPapers(f)
}

// ReadPapers parses paper provenance rows.
func ReadPapers(r io.Reader) ([]*data.Paper, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read paper header: %w", err)
	}
	cols, err := indexColumns(header, paperRequired)
	if err != nil {
		return nil, err
	}
	indexOptional(header, cols, paperOptional)

	list := make([]*data.Paper, 0)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read paper row %d: %w", line, err)
		}

		p, err := parsePaper(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("invalid paper row %d: %w", line, err)
		}
		list = append(list, p)
	}
	return list, nil
}

func parsePaper(rec []string, cols map[string]int) (*data.Paper, error) {
	p := &data.Paper{
		ID:    strings.TrimSpace(field(rec, cols, "id")),
		DOI:   strings.TrimSpace(field(rec, cols, "doi")),
		Title: strings.TrimSpace(field(rec, cols, "title")),
	}
	if p.ID == "" {
		return nil, &thermo.MissingFieldError{Field: "id"}
	}

	var err error
	if p.SourceWeight, err = parseOptionalFloat(rec, cols, "source_weight"); err != nil {
		return nil, err
	}
	if p.Transparency, err = parseOptionalFloat(rec, cols, "transparency"); err != nil {
		return nil, err
	}
	if p.SampleSize, err = parseOptionalInt(rec, cols, "sample_size"); err != nil {
		return nil, err
	}
	if p.Reproductions, err = parseOptionalInt(rec, cols, "reproductions"); err != nil {
		return nil, err
	}
	if p.CVError, err = parseOptionalFloat(rec, cols, "cv_error"); err != nil {
		return nil, err
	}
	if p.Citations, err = parseOptionalInt(rec, cols, "citations"); err != nil {
		return nil, err
	}
	if p.Published, err = parseOptionalFloat(rec, cols, "published"); err != nil {
		return nil, err
	}
	return p, nil
}

func indexColumns(header, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, &thermo.MissingFieldError{Field: name}
		}
	}
	return cols, nil
}

func indexOptional(header []string, cols map[string]int, optional []string) {
	for _, name := range optional {
		if _, ok := cols[name]; !ok {
			cols[name] = -1
		}
	}
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseFloat(rec []string, cols map[string]int, name string) (float64, error) {
	raw := strings.TrimSpace(field(rec, cols, name))
	if raw == "" {
		return 0, &thermo.MissingFieldError{Field: name}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s value %q: %w", name, raw, err)
	}
	return v, nil
}

func parseOptionalFloat(rec []string, cols map[string]int, name string) (float64, error) {
	raw := strings.TrimSpace(field(rec, cols, name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s value %q: %w", name, raw, err)
	}
	return v, nil
}

func parseOptionalInt(rec []string, cols map[string]int, name string) (int, error) {
	raw := strings.TrimSpace(field(rec, cols, name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s value %q: %w", name, raw, err)
	}
	return v, nil
}
