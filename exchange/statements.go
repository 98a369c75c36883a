package exchange

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/hdl"
)

// HeaderBufferBits is the size of the line buffer used to skip a header row.
const HeaderBufferBits = "8*1024"

// Descriptor is the HDL integer holding the file handle.
func (f *File) Descriptor() string {
	return "f_" + f.Name
}

// StatusVariable receives the return value of $fscanf and $fgets.
func (f *File) StatusVariable() string {
	return "status_" + f.Name
}

func (f *File) currentTimestamp() string  { return "ctstamp_" + f.Name }
func (f *File) previousTimestamp() string { return "ptstamp_" + f.Name }
func (f *File) timeDifference() string    { return "diffptime_" + f.Name }
func (f *File) headerBuffer() string      { return "header_" + f.Name }

func (f *File) buffer(col column) string {
	return "buffer_" + f.Name + "_" + col.name
}

func (f *File) skipsHeader() bool {
	return f.Direction == In && f.HasHeader
}

// Declarations renders the HDL variables used by the I/O statements of the file.
func (f *File) Declarations() ([]string, error) {
	lines := []string{
		fmt.Sprintf("integer %s;", f.Descriptor()),
		fmt.Sprintf("integer %s;", f.StatusVariable()),
	}
	if f.skipsHeader() {
		lines = append(lines, fmt.Sprintf("reg [%s-1:0] %s;", HeaderBufferBits, f.headerBuffer()))
	}
	// The halves of a complex connector are separate regs of the connector's range.
	for _, col := range f.columns() {
		if col.name == col.connector.Name {
			continue
		}
		d, err := col.connector.DeclarationAs(hdl.Reg, col.name)
		if err != nil {
			return nil, errors.WithMessagef(err, "exchange file %q", f.Name)
		}
		lines = append(lines, d)
	}
	if f.Kind == Control {
		lines = append(lines, fmt.Sprintf("time %s, %s, %s;",
			f.currentTimestamp(), f.previousTimestamp(), f.timeDifference()))
		for _, col := range f.columns() {
			d, err := col.connector.DeclarationAs(hdl.Reg, f.buffer(col))
			if err != nil {
				return nil, errors.WithMessagef(err, "exchange file %q", f.Name)
			}
			lines = append(lines, d)
		}
	}
	return lines, nil
}

// Open renders the statements opening the file. The simulator reads what the host
// writes. An output file with a header gets its column names written right away.
func (f *File) Open() string {
	if f.Direction == In {
		return fmt.Sprintf("%s = $fopen(\"%s\", \"r\");", f.Descriptor(), f.Path())
	}
	open := fmt.Sprintf("%s = $fopen(\"%s\", \"w\");", f.Descriptor(), f.Path())
	if !f.HasHeader {
		return open
	}
	header := fmt.Sprintf("$fwrite(%s, \"%s\\n\");", f.Descriptor(), strings.Join(f.ColumnNames(), "\\t"))
	return open + "\n" + header
}

// Close renders the statement closing the file.
func (f *File) Close() string {
	return fmt.Sprintf("$fclose(%s);", f.Descriptor())
}

// formatString renders the HDL format literal of one row.
func (f *File) formatString() string {
	tokens := []string{}
	if f.Kind == Control {
		tokens = append(tokens, "%d")
	}
	for _, col := range f.columns() {
		tokens = append(tokens, col.connector.Format())
	}
	return "\"" + strings.Join(tokens, "\\t") + "\\n\""
}

func (f *File) scan(targets []string) string {
	return fmt.Sprintf("%s = $fscanf(%s, %s, %s);",
		f.StatusVariable(), f.Descriptor(), f.formatString(), strings.Join(targets, ", "))
}

func (f *File) skipHeader() []string {
	if !f.skipsHeader() {
		return nil
	}
	return []string{fmt.Sprintf("%s = $fgets(%s, %s);", f.StatusVariable(), f.headerBuffer(), f.Descriptor())}
}

// ReadStatements renders the procedural statements consuming the file inside the
// simulation. clock is the sampling clock and ready the readiness condition guarding
// every scan of a data file.
func (f *File) ReadStatements(clock, ready string) (string, error) {
	if f.Direction != In {
		return "", errors.Wrapf(hdl.ErrUnsupportedOperation, "exchange file %q is not read by the simulator", f.Name)
	}
	if f.Kind == Control {
		return strings.Join(f.replay(), "\n"), nil
	}

	targets := []string{}
	for _, col := range f.columns() {
		targets = append(targets, col.name)
	}
	lines := f.skipHeader()
	lines = append(lines,
		fmt.Sprintf("while (!$feof(%s)) begin", f.Descriptor()),
		fmt.Sprintf("    @(negedge %s)", clock),
		fmt.Sprintf("    if (%s) begin", ready),
		"        "+f.scan(targets),
		"    end",
		"end",
	)
	return strings.Join(lines, "\n"), nil
}

// WriteStatements renders the block writing one row per clock cycle to the file.
func (f *File) WriteStatements(clock string) (string, error) {
	if f.Direction != Out {
		return "", errors.Wrapf(hdl.ErrUnsupportedOperation, "exchange file %q is not written by the simulator", f.Name)
	}

	values := []string{}
	for _, col := range f.columns() {
		values = append(values, col.name)
	}
	write := fmt.Sprintf("$fwrite(%s, %s, %s);", f.Descriptor(), f.formatString(), strings.Join(values, ", "))

	lines := []string{fmt.Sprintf("always @(posedge %s) begin", clock)}
	if f.Condition != "" {
		lines = append(lines,
			fmt.Sprintf("    if (%s) begin", f.Condition),
			"        "+write,
			"    end",
		)
	} else {
		lines = append(lines, "    "+write)
	}
	lines = append(lines, "end")
	return strings.Join(lines, "\n"), nil
}

// replay renders the buffered-delay replay of a control file. Each row is scanned
// into buffers, then applied to the live connectors after the difference to the
// previously applied timestamp. Reaching end of file ends the loop right after the
// last row is scanned, so that row is applied once more after the loop.
func (f *File) replay() []string {
	targets := []string{f.currentTimestamp()}
	for _, col := range f.columns() {
		targets = append(targets, f.buffer(col))
	}

	apply := []string{
		fmt.Sprintf("%s = %s - %s;", f.timeDifference(), f.currentTimestamp(), f.previousTimestamp()),
		fmt.Sprintf("#%s begin", f.timeDifference()),
		fmt.Sprintf("    %s = %s;", f.previousTimestamp(), f.currentTimestamp()),
	}
	for _, col := range f.columns() {
		apply = append(apply, fmt.Sprintf("    %s = %s;", col.name, f.buffer(col)))
	}
	apply = append(apply, "end")

	lines := f.skipHeader()
	lines = append(lines,
		fmt.Sprintf("%s = 0;", f.previousTimestamp()),
		f.scan(targets),
		fmt.Sprintf("while (!$feof(%s)) begin", f.Descriptor()),
	)
	for _, l := range apply {
		lines = append(lines, "    "+l)
	}
	lines = append(lines, "    "+f.scan(targets), "end")
	lines = append(lines, "// Apply the last row")
	lines = append(lines, apply...)
	return lines
}
