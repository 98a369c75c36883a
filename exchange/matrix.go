package exchange

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/hdl"
)

// Column holds the samples of one signal. Imag is nil for real-valued columns.
type Column struct {
	Real []float64
	Imag []float64
}

// RealColumn returns a real-valued column.
func RealColumn(values ...float64) Column {
	return Column{Real: values}
}

// ComplexColumn returns a complex-valued column.
func ComplexColumn(values ...complex128) Column {
	c := Column{Real: make([]float64, len(values)), Imag: make([]float64, len(values))}
	for i, v := range values {
		c.Real[i] = real(v)
		c.Imag[i] = imag(v)
	}
	return c
}

// IsComplex reports whether the column carries an imaginary part.
func (c Column) IsComplex() bool {
	return c.Imag != nil
}

// Len returns the number of samples.
func (c Column) Len() int {
	return len(c.Real)
}

// Matrix is a payload of sampled signals: one column per signal, one row per sample.
type Matrix []Column

// FromRows builds a real-valued matrix from row-major samples.
func FromRows(rows [][]float64) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	width := len(rows[0])
	m := make(Matrix, width)
	for i := range m {
		m[i].Real = make([]float64, len(rows))
	}
	for r, row := range rows {
		if len(row) != width {
			return nil, errors.Wrapf(hdl.ErrInvalidPayload, "row %d has %d columns, expected %d", r, len(row), width)
		}
		for c, v := range row {
			m[c].Real[r] = v
		}
	}
	return m, nil
}

// Rows returns the number of samples per column.
func (m Matrix) Rows() int {
	if len(m) == 0 {
		return 0
	}
	return m[0].Len()
}

func (m Matrix) validate() error {
	rows := m.Rows()
	for i, c := range m {
		if c.Len() != rows {
			return errors.Wrapf(hdl.ErrInvalidPayload, "column %d has %d samples, expected %d", i, c.Len(), rows)
		}
		if c.IsComplex() && len(c.Imag) != rows {
			return errors.Wrapf(hdl.ErrInvalidPayload, "column %d has %d imaginary samples, expected %d", i, len(c.Imag), rows)
		}
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
