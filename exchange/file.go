package exchange

import (
	"math"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/hdl"
)

// Direction is seen from the host: the host writes In files and reads Out files.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Kind distinguishes sampled data from timestamped control events.
type Kind string

const (
	// Data files carry one row per simulated sample.
	Data Kind = "data"
	// Control files carry an absolute timestamp in the first column followed by the
	// values to apply at that time.
	Control Kind = "control"
)

// FileExtension is appended to the file name to form its path.
const FileExtension = ".txt"

// Options are the construction parameters of a File.
type Options struct {
	// Name identifies the file and prefixes its HDL variables. Required.
	Name string
	// Dir is the directory holding the file, "." if empty.
	Dir string
	// Direction defaults to In.
	Direction Direction
	// Kind defaults to Data.
	Kind Kind
	// Connectors define the column order and names.
	Connectors []*hdl.Connector
	// HasHeader puts a row of column names before the samples. The host writes it for
	// In files, the generated testbench for Out files.
	HasHeader bool
	// Preserve keeps the file on disk after Remove.
	Preserve bool
	// Condition gates the per-sample write of Out files; unconditional if empty.
	Condition string
	// Data is the initial payload.
	Data Matrix
}

// File is one file-based channel between the host and the simulator.
type File struct {
	Name       string
	Dir        string
	Direction  Direction
	Kind       Kind
	Connectors []*hdl.Connector
	HasHeader  bool
	Preserve   bool
	Condition  string

	data    Matrix
	complex []bool
	header  []string
}

// NewFile validates the options and returns the file. Output control files are not
// supported.
func NewFile(opts Options) (*File, error) {
	if opts.Name == "" {
		return nil, errors.Wrap(hdl.ErrConfiguration, "exchange file without a name")
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Direction == "" {
		opts.Direction = In
	}
	if opts.Kind == "" {
		opts.Kind = Data
	}
	switch opts.Direction {
	case In, Out:
	default:
		return nil, errors.Wrapf(hdl.ErrConfiguration, "exchange file %q: unknown direction %q", opts.Name, opts.Direction)
	}
	switch opts.Kind {
	case Data, Control:
	default:
		return nil, errors.Wrapf(hdl.ErrConfiguration, "exchange file %q: unknown kind %q", opts.Name, opts.Kind)
	}
	if opts.Kind == Control && opts.Direction == Out {
		return nil, errors.Wrapf(hdl.ErrUnsupportedOperation, "exchange file %q: control files can only be inputs", opts.Name)
	}
	if len(opts.Connectors) == 0 {
		return nil, errors.Wrapf(hdl.ErrConfiguration, "exchange file %q has no connectors", opts.Name)
	}
	for _, c := range opts.Connectors {
		if c == nil {
			return nil, errors.Wrapf(hdl.ErrConfiguration, "exchange file %q: nil connector", opts.Name)
		}
	}

	f := &File{
		Name:       opts.Name,
		Dir:        opts.Dir,
		Direction:  opts.Direction,
		Kind:       opts.Kind,
		Connectors: opts.Connectors,
		HasHeader:  opts.HasHeader,
		Preserve:   opts.Preserve,
		Condition:  opts.Condition,
		complex:    make([]bool, len(opts.Connectors)),
	}
	if opts.Data != nil {
		if err := f.SetData(opts.Data); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Path returns the location of the file on disk.
func (f *File) Path() string {
	return filepath.Join(f.Dir, f.Name+FileExtension)
}

// columnOffset is the number of leading payload columns not bound to a connector.
func (f *File) columnOffset() int {
	if f.Kind == Control {
		return 1
	}
	return 0
}

// SetData replaces the payload after checking its shape against the connectors.
func (f *File) SetData(m Matrix) error {
	if err := m.validate(); err != nil {
		return errors.WithMessagef(err, "exchange file %q", f.Name)
	}
	expected := len(f.Connectors) + f.columnOffset()
	if len(m) != expected {
		return errors.Wrapf(hdl.ErrInvalidPayload, "exchange file %q: payload has %d columns, expected %d", f.Name, len(m), expected)
	}
	if f.Kind == Control {
		if m[0].IsComplex() {
			return errors.Wrapf(hdl.ErrInvalidPayload, "exchange file %q: timestamps must be real", f.Name)
		}
		// Timestamps are scanned with %d into time variables.
		for r, t := range m[0].Real {
			if t < 0 || t != math.Trunc(t) {
				return errors.Wrapf(hdl.ErrInvalidPayload, "exchange file %q: timestamp %v of row %d is not a whole number of time units", f.Name, t, r)
			}
		}
	}

	f.complex = make([]bool, len(f.Connectors))
	for i := range f.Connectors {
		f.complex[i] = m[i+f.columnOffset()].IsComplex()
	}
	f.data = m
	return nil
}

// Data returns the payload.
func (f *File) Data() Matrix {
	return f.data
}

// Header returns the header row found by the last Read.
func (f *File) Header() []string {
	return f.header
}

// column is one physical column of the file as seen by the simulator.
type column struct {
	name      string
	connector *hdl.Connector
}

// columns expands complex connectors into their real and imaginary parts.
func (f *File) columns() []column {
	cols := []column{}
	for i, c := range f.Connectors {
		if f.complex[i] {
			cols = append(cols, column{c.Name + "Real", c}, column{c.Name + "Imag", c})
		} else {
			cols = append(cols, column{c.Name, c})
		}
	}
	return cols
}

// ColumnNames returns the header row of the file.
func (f *File) ColumnNames() []string {
	names := []string{}
	if f.Kind == Control {
		names = append(names, "timestamp")
	}
	for _, c := range f.columns() {
		names = append(names, c.name)
	}
	return names
}
