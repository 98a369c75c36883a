package exchange

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/hdl"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/util"
)

// Separator is the column delimiter of exchange files.
const Separator = '\t'

// Encode writes the payload as tab separated rows, complex columns split into a real
// and an imaginary column.
func (f *File) Encode(w io.Writer) error {
	if f.data == nil {
		return errors.Wrapf(hdl.ErrInvalidPayload, "exchange file %q has no payload", f.Name)
	}

	out := csv.NewWriter(w)
	out.Comma = Separator
	if f.HasHeader {
		if err := out.Write(f.ColumnNames()); err != nil {
			return errors.Wrapf(err, "exchange file %q", f.Name)
		}
	}

	for r := 0; r < f.data.Rows(); r++ {
		record := make([]string, 0, len(f.data)+len(f.Connectors))
		for _, c := range f.data {
			record = append(record, formatValue(c.Real[r]))
			if c.IsComplex() {
				record = append(record, formatValue(c.Imag[r]))
			}
		}
		if err := out.Write(record); err != nil {
			return errors.Wrapf(err, "exchange file %q", f.Name)
		}
	}
	out.Flush()
	return errors.Wrapf(out.Error(), "exchange file %q", f.Name)
}

// Write stores the payload at Path. Only input files are written by the host.
func (f *File) Write() error {
	if f.Direction != In {
		return errors.Wrapf(hdl.ErrUnsupportedOperation, "exchange file %q is written by the simulator", f.Name)
	}
	if err := util.EnsureDir(f.Dir); err != nil {
		return errors.Wrapf(err, "exchange file %q", f.Name)
	}

	file, err := os.Create(f.Path())
	if err != nil {
		return errors.Wrapf(err, "exchange file %q", f.Name)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := f.Encode(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "exchange file %q", f.Name)
	}
	log.Debug("Wrote %d rows to `%s`\n", f.data.Rows(), f.Path())
	return nil
}

// Decode parses tab separated rows. Cells are returned as text.
func (f *File) Decode(r io.Reader) ([][]string, error) {
	in := csv.NewReader(r)
	in.Comma = Separator
	in.FieldsPerRecord = -1
	in.LazyQuotes = true
	in.TrimLeadingSpace = true

	rows := [][]string{}
	for {
		record, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "exchange file %q", f.Name)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}

	f.header = nil
	if f.HasHeader && len(rows) > 0 {
		f.header = rows[0]
		rows = rows[1:]
	}
	return rows, nil
}

// Read parses the file at Path.
func (f *File) Read() ([][]string, error) {
	file, err := os.Open(f.Path())
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(hdl.ErrMissingFile, "exchange file %q: %s", f.Name, f.Path())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "exchange file %q", f.Name)
	}
	defer file.Close()

	rows, err := f.Decode(file)
	if err != nil {
		return nil, err
	}
	log.Debug("Read %d rows from `%s`\n", len(rows), f.Path())
	return rows, nil
}

// Remove deletes the file unless it is preserved.
func (f *File) Remove() error {
	if f.Preserve {
		log.Debug("Preserving `%s`\n", f.Path())
		return nil
	}
	if err := os.Remove(f.Path()); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "exchange file %q", f.Name)
	}
	return nil
}
