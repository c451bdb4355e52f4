package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermognosis/thermopulse/pkg/thermo"
)

const measurementCSV = `mat_id,paper_id,temp,seebeck,sigma,kappa,err_temp,err_seebeck,err_sigma,err_kappa
bi2te3,p1,300,200e-6,1e5,1.5,0.5,2e-6,1e3,0.05
bi2te3,p1,350,210e-6,9.5e4,1.4,,,,
pbte,p2,700,250e-6,5e4,1.8,0.5,,,
`

func TestReadMeasurements(t *testing.T) {
	list, err := ReadMeasurements(strings.NewReader(measurementCSV))
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "bi2te3", list[0].MaterialID)
	assert.Equal(t, "p1", list[0].PaperID)
	assert.Equal(t, 300.0, list[0].Temp)
	assert.Equal(t, 200e-6, list[0].Seebeck)
	assert.Equal(t, 0.05, list[0].ErrKappa)

	// Absent uncertainty cells default to zero.
	assert.Zero(t, list[1].ErrSeebeck)
	assert.Zero(t, list[2].ErrKappa)
}

func TestReadMeasurements_ColumnOrderIndependent(t *testing.T) {
	csv := "kappa,mat_id,sigma,temp,paper_id,seebeck\n1.5,bi2te3,1e5,300,p1,200e-6\n"
	list, err := ReadMeasurements(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1.5, list[0].Kappa)
	assert.Equal(t, 200e-6, list[0].Seebeck)
}

func TestReadMeasurements_MissingColumn(t *testing.T) {
	csv := "mat_id,paper_id,temp,seebeck,sigma\nbi2te3,p1,300,200e-6,1e5\n"
	_, err := ReadMeasurements(strings.NewReader(csv))
	var mf *thermo.MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "kappa", mf.Field)
}

func TestReadMeasurements_MissingValue(t *testing.T) {
	csv := "mat_id,paper_id,temp,seebeck,sigma,kappa\nbi2te3,p1,,200e-6,1e5,1.5\n"
	_, err := ReadMeasurements(strings.NewReader(csv))
	var mf *thermo.MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "temp", mf.Field)
}

func TestReadMeasurements_MissingMaterial(t *testing.T) {
	csv := "mat_id,paper_id,temp,seebeck,sigma,kappa\n,p1,300,200e-6,1e5,1.5\n"
	_, err := ReadMeasurements(strings.NewReader(csv))
	var mf *thermo.MissingFieldError
	assert.ErrorAs(t, err, &mf)
}

func TestReadMeasurements_NegativeUncertainty(t *testing.T) {
	csv := "mat_id,paper_id,temp,seebeck,sigma,kappa,err_kappa\nbi2te3,p1,300,200e-6,1e5,1.5,-0.1\n"
	_, err := ReadMeasurements(strings.NewReader(csv))
	var cv *thermo.ConstraintViolationError
	assert.ErrorAs(t, err, &cv)
}

func TestReadMeasurements_SkipsImplausibleRows(t *testing.T) {
	// Second row's Seebeck coefficient is far beyond the empirical bound.
	csv := `mat_id,paper_id,temp,seebeck,sigma,kappa
bi2te3,p1,300,200e-6,1e5,1.5
bogus,p1,300,0.5,1e5,1.5
`
	list, err := ReadMeasurements(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bi2te3", list[0].MaterialID)
}

func TestReadMeasurements_BadFloat(t *testing.T) {
	csv := "mat_id,paper_id,temp,seebeck,sigma,kappa\nbi2te3,p1,not-a-number,200e-6,1e5,1.5\n"
	_, err := ReadMeasurements(strings.NewReader(csv))
	assert.Error(t, err)
}

const paperCSV = `id,doi,title,source_weight,transparency,sample_size,reproductions,cv_error,citations,published
p1,10.1000/xyz,Transport in Bi2Te3,0.9,1.0,40,3,0.05,210,2018
p2,,,0.5,0.5,12,,,8,2024
`

func TestReadPapers(t *testing.T) {
	list, err := ReadPapers(strings.NewReader(paperCSV))
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, 0.9, list[0].SourceWeight)
	assert.Equal(t, 3, list[0].Reproductions)
	assert.Equal(t, 210, list[0].Citations)

	assert.Equal(t, "p2", list[1].ID)
	assert.Zero(t, list[1].Reproductions)
	assert.Equal(t, 2024.0, list[1].Published)
}

func TestReadPapers_MissingID(t *testing.T) {
	csv := "id,citations\n,12\n"
	_, err := ReadPapers(strings.NewReader(csv))
	var mf *thermo.MissingFieldError
	assert.ErrorAs(t, err, &mf)
}

func TestReadPapers_MinimalHeader(t *testing.T) {
	csv := "id\np1\n"
	list, err := ReadPapers(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)
}
