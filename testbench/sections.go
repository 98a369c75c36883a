package testbench

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/hdl"
	"github.com/daedaleanai/tbgen/util"
)

// Section markers. Downstream tooling greps generated sources for these lines.
const (
	SectionParameters   = "//Parameter definitions"
	SectionDeclarations = "//Register and wire definitions"
	SectionAssignments  = "//Assignments"
	SectionIO           = "//Variables for the io files"
	SectionDut          = "//DUT definition"
	SectionClock        = "//Clock definition"
	SectionCapture      = "//Output capture"
	SectionExecution    = "//Execution with parallel fork-join"
	SectionTermination  = "//Close files and finish"
)

const indentation = "    "

func indent(block string, level int) string {
	prefix := strings.Repeat(indentation, level)
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

var timescaleRe = regexp.MustCompile(`^\s*(1|10|100)\s*(s|ms|us|ns|ps|fs)\s*/`)

// timeUnitExponents are the decimal exponents of the timescale units.
var timeUnitExponents = map[string]int{
	"s":  0,
	"ms": -3,
	"us": -6,
	"ns": -9,
	"ps": -12,
	"fs": -15,
}

// timeUnit returns the length in seconds of one simulated time unit as a real literal.
func (tb *Testbench) timeUnit() (string, error) {
	match := timescaleRe.FindStringSubmatch(tb.Timescale)
	if match == nil {
		return "", errors.Wrapf(hdl.ErrConfiguration, "invalid timescale %q", tb.Timescale)
	}
	exponent := timeUnitExponents[match[2]] + len(match[1]) - 1
	return "1e" + strconv.Itoa(exponent), nil
}

// ParameterDefinitions renders the rate, the derived sample period in simulation time
// units and the parameters passed to the device under test.
func (tb *Testbench) ParameterDefinitions() (string, error) {
	unit, err := tb.timeUnit()
	if err != nil {
		return "", err
	}
	params := []Parameter{
		{Name: RateParameter, Type: "real", Value: tb.Rate},
		{Name: SamplePeriodParameter, Type: "real", Value: fmt.Sprintf("1.0/(%s*%s)", RateParameter, unit)},
	}
	params = append(params, tb.DutParameters...)

	lines := []string{SectionParameters}
	for _, p := range params {
		if p.Type == "" {
			lines = append(lines, fmt.Sprintf("parameter %s = %s;", p.Name, p.Value))
		} else {
			lines = append(lines, fmt.Sprintf("parameter %s %s = %s;", p.Type, p.Name, p.Value))
		}
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// Declarations renders the reg and wire declarations of all connectors.
func (tb *Testbench) Declarations() (string, error) {
	decls, err := tb.Connectors.Declarations()
	if err != nil {
		return "", err
	}
	return SectionDeclarations + "\n" + decls, nil
}

// Assignments renders the continuous assignments of the assignable connectors, pattern
// by pattern.
func (tb *Testbench) Assignments() string {
	lines := []string{SectionAssignments}
	for _, m := range tb.Assignable {
		lines = append(lines, tb.Connectors.AssignmentsMatching(m)...)
	}
	return strings.Join(lines, "\n") + "\n"
}

// IODefinitions renders the readiness flag, the file variables and the statements
// opening every exchange file.
func (tb *Testbench) IODefinitions() (string, error) {
	lines := []string{SectionIO, fmt.Sprintf("reg %s;", tb.Ready)}
	for _, f := range tb.Files {
		decls, err := f.Declarations()
		if err != nil {
			return "", err
		}
		lines = append(lines, decls...)
	}
	lines = append(lines, "initial begin")
	for _, f := range tb.Files {
		lines = append(lines, indent(f.Open(), 1))
	}
	lines = append(lines, "end")
	return strings.Join(lines, "\n") + "\n", nil
}

func renderConnections(connections []Connection) []string {
	lines := []string{}
	for i, c := range connections {
		sep := ","
		if i == len(connections)-1 {
			sep = ""
		}
		lines = append(lines, fmt.Sprintf("%s.%s(%s)%s", indentation, c.Port, c.Net, sep))
	}
	return lines
}

func renderInstance(inst Instance) string {
	head := inst.Module
	if len(inst.Parameters) > 0 {
		params := []string{}
		for _, p := range inst.Parameters {
			params = append(params, fmt.Sprintf(".%s(%s)", p.Port, p.Net))
		}
		head += " #(" + strings.Join(params, ", ") + ")"
	}
	lines := []string{fmt.Sprintf("%s %s (", head, inst.Name)}
	lines = append(lines, renderConnections(inst.Connections)...)
	lines = append(lines, ");")
	return strings.Join(lines, "\n")
}

// DutInstance returns the instantiation of the device under test.
func (tb *Testbench) DutInstance() Instance {
	inst := Instance{Module: tb.Dut, Name: "dut"}
	for _, p := range tb.DutParameters {
		inst.Parameters = append(inst.Parameters, Connection{Port: p.Name, Net: p.Name})
	}
	for _, p := range tb.Ports {
		net := p.Name
		if n, ok := tb.Nets[p.Name]; ok {
			net = n
		}
		inst.Connections = append(inst.Connections, Connection{Port: p.Name, Net: net})
	}
	return inst
}

// Instantiations renders the device under test followed by the auxiliary instances.
func (tb *Testbench) Instantiations() string {
	blocks := []string{SectionDut, renderInstance(tb.DutInstance())}
	for _, inst := range tb.Instances {
		blocks = append(blocks, "", renderInstance(inst))
	}
	return strings.Join(blocks, "\n") + "\n"
}

// ClockGenerator renders the free running clock toggling every half sample period.
func (tb *Testbench) ClockGenerator() string {
	return fmt.Sprintf("%s\nalways #(%s/2.0) %s = !%s;\n", SectionClock, SamplePeriodParameter, tb.Clock, tb.Clock)
}

// OutputCapture renders the blocks writing every output file from time zero on.
func (tb *Testbench) OutputCapture() (string, error) {
	blocks := []string{SectionCapture}
	for _, f := range tb.FilesOf(exchange.Out) {
		block, err := f.WriteStatements(tb.Clock)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n") + "\n", nil
}

// DumpMacro enables the waveform dump of a generated testbench.
const DumpMacro = "DUMP_VCD"

// WaveformDump renders a block recording all signals to <name>.vcd when DumpMacro is
// defined.
func (tb *Testbench) WaveformDump() string {
	return strings.Join([]string{
		"`ifdef " + DumpMacro,
		"initial begin",
		fmt.Sprintf(`%s$dumpfile("%s.vcd");`, indentation, tb.Name),
		fmt.Sprintf("%s$dumpvars(0, %s);", indentation, tb.Name),
		"end",
		"`endif",
		"",
	}, "\n")
}

// Execution renders the fork block. Initial values are applied on their own branches;
// the input files are replayed one after the other on the readiness branch, only after
// the readiness announcement, so stimulus never races the initialization.
func (tb *Testbench) Execution() (string, error) {
	lines := []string{SectionExecution, "initial #0 begin", indentation + "fork"}
	for _, s := range tb.Connectors.Initializations() {
		lines = append(lines, indent(s, 2))
	}

	lines = append(lines,
		indent("begin", 2),
		indent(fmt.Sprintf("%s = 1'b0;", tb.Ready), 3),
		indent(fmt.Sprintf("@(posedge %s) %s = 1'b1;", tb.Clock, tb.Ready), 3),
		indent(`$display("Ready to simulate");`, 3),
	)
	for _, f := range tb.FilesOf(exchange.In) {
		block, err := f.ReadStatements(tb.Clock, tb.Ready)
		if err != nil {
			return "", err
		}
		lines = append(lines, indent(fmt.Sprintf("// Replay %s", f.Name), 3), indent(block, 3))
	}
	lines = append(lines, indent("end", 2))
	return strings.Join(lines, "\n") + "\n", nil
}

// Termination renders the join of the fork block, closes every file and finishes the
// simulation.
func (tb *Testbench) Termination() string {
	lines := []string{indentation + "join", indentation + SectionTermination}
	for _, f := range tb.Files {
		lines = append(lines, indentation+f.Close())
	}
	lines = append(lines, indentation+"$finish;", "end")
	return strings.Join(lines, "\n") + "\n"
}

// Generate renders the complete testbench source.
func (tb *Testbench) Generate() (string, error) {
	if tb.Dut == "" || len(tb.Ports) == 0 {
		return "", errors.Wrap(hdl.ErrConfiguration, "testbench without a device under test port list")
	}

	params, err := tb.ParameterDefinitions()
	if err != nil {
		return "", err
	}
	decls, err := tb.Declarations()
	if err != nil {
		return "", err
	}
	io, err := tb.IODefinitions()
	if err != nil {
		return "", err
	}
	capture, err := tb.OutputCapture()
	if err != nil {
		return "", err
	}
	execution, err := tb.Execution()
	if err != nil {
		return "", err
	}

	sections := []string{
		fmt.Sprintf("`timescale %s", tb.Timescale),
		fmt.Sprintf("// Generated by tbgen %s", util.TbgenVersion),
		fmt.Sprintf("module %s;", tb.Name),
		params,
		decls,
		tb.Assignments(),
		io,
		tb.Instantiations(),
		tb.ClockGenerator(),
		capture,
		tb.WaveformDump(),
		execution + tb.Termination(),
		"endmodule\n",
	}
	return strings.Join(sections, "\n"), nil
}
