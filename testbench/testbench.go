package testbench

import (
	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/hdl"
	"github.com/daedaleanai/tbgen/util"
)

// Defaults of a testbench.
const (
	DefaultTimescale = "1ps/1ps"
	DefaultRate      = "100.0e6"
	DefaultClock     = "clock"
	DefaultReady     = "initdone"

	// RateParameter holds the sample rate, SamplePeriodParameter is derived from it.
	RateParameter         = "Rs"
	SamplePeriodParameter = "Ts"
)

// Port is one entry of the port list of the device under test.
type Port struct {
	Name       string
	Direction  hdl.Class
	Signedness hdl.Signedness
	LeftLimit  string
	RightLimit string
}

// Parameter is an HDL parameter definition.
type Parameter struct {
	Name  string
	Type  string
	Value string
}

// Connection binds a port (or a parameter) of an instance to a net (or an expression).
type Connection struct {
	Port string
	Net  string
}

// Instance is an auxiliary sub-module instantiated next to the device under test.
type Instance struct {
	Module      string
	Name        string
	Parameters  []Connection
	Connections []Connection
}

// Options are the optional construction parameters of a testbench.
type Options struct {
	// Name of the testbench module, "tb_<dut>" by default.
	Name string
	// Timescale directive, DefaultTimescale by default.
	Timescale string
	// Rate is the sample rate expression the clock is derived from.
	Rate string
	// Clock is the name of the generated clock, DefaultClock by default.
	Clock string
	// Ready is the name of the readiness flag, DefaultReady by default.
	Ready string
}

// Testbench holds everything needed to render the source of a simulation.
type Testbench struct {
	Name      string
	Timescale string
	Rate      string
	Clock     string
	Ready     string

	// Dut is the module name of the device under test and Ports its parsed port list.
	Dut   string
	Ports []Port
	// DutParameters are declared in the testbench and passed to the DUT by name.
	DutParameters []Parameter
	// Nets overrides the net connected to a DUT port. Ports connect to the net of the
	// same name otherwise.
	Nets map[string]string

	Connectors *hdl.Bundle
	Files      []*exchange.File
	// Assignable selects, in order, the connectors rendered as continuous assignments.
	Assignable []hdl.Matcher
	Instances  []Instance
}

// New returns a testbench for the module dut. Connectors are seeded from the port list:
// a reg for every input, a wire for every output or inout, and the clock.
func New(dut string, ports []Port, opts Options) (*Testbench, error) {
	if dut == "" {
		return nil, errors.Wrap(hdl.ErrConfiguration, "testbench without a device under test")
	}
	if len(ports) == 0 {
		return nil, errors.Wrapf(hdl.ErrConfiguration, "no port list for module %q", dut)
	}

	tb := &Testbench{
		Name:       opts.Name,
		Timescale:  opts.Timescale,
		Rate:       opts.Rate,
		Clock:      opts.Clock,
		Ready:      opts.Ready,
		Dut:        dut,
		Ports:      ports,
		Nets:       map[string]string{},
		Connectors: hdl.NewBundle(),
	}
	if tb.Name == "" {
		tb.Name = "tb_" + dut
	}
	if tb.Timescale == "" {
		tb.Timescale = DefaultTimescale
	}
	if tb.Rate == "" {
		tb.Rate = DefaultRate
	}
	if tb.Clock == "" {
		tb.Clock = DefaultClock
	}
	if tb.Ready == "" {
		tb.Ready = DefaultReady
	}

	for _, p := range ports {
		class := hdl.Wire
		switch p.Direction {
		case hdl.Input:
			class = hdl.Reg
		case hdl.Output, hdl.Inout:
		default:
			return nil, errors.Wrapf(hdl.ErrConfiguration, "port %q of %q: unknown direction %q", p.Name, dut, p.Direction)
		}
		c := &hdl.Connector{
			Name:       p.Name,
			Class:      class,
			Signedness: p.Signedness,
			LeftLimit:  p.LeftLimit,
			RightLimit: p.RightLimit,
		}
		if c.LeftLimit == "" && c.RightLimit == "" {
			c.LeftLimit, c.RightLimit = "0", "0"
		}
		if err := tb.Connectors.Add(c); err != nil {
			return nil, errors.WithMessagef(err, "port list of %q", dut)
		}
	}

	clock, ok := tb.Connectors.Lookup(tb.Clock)
	if !ok {
		clock = hdl.NewScalar(tb.Clock, hdl.Reg)
		if err := tb.Connectors.Add(clock); err != nil {
			return nil, err
		}
	}
	if clock.InitialValue == "" {
		clock.InitialValue = "'b0"
	}
	return tb, nil
}

// AddConnector adds a signal to the testbench.
func (tb *Testbench) AddConnector(c *hdl.Connector) error {
	return tb.Connectors.Add(c)
}

// AddFile registers an exchange file. Its connectors must belong to the testbench.
func (tb *Testbench) AddFile(f *exchange.File) error {
	for _, c := range f.Connectors {
		member, ok := tb.Connectors.Lookup(c.Name)
		if !ok || member != c {
			return errors.Wrapf(hdl.ErrNotFound, "exchange file %q: connector %q is not part of the testbench", f.Name, c.Name)
		}
	}
	for _, existing := range tb.Files {
		if existing.Name == f.Name {
			return errors.Wrapf(hdl.ErrConfiguration, "exchange file %q already defined", f.Name)
		}
	}
	tb.Files = append(tb.Files, f)
	return nil
}

// File returns the exchange file with the given name.
func (tb *Testbench) File(name string) (*exchange.File, error) {
	for _, f := range tb.Files {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, errors.Wrapf(hdl.ErrNotFound, "exchange file %q", name)
}

// FilesOf returns the exchange files with the given direction, in registration order.
func (tb *Testbench) FilesOf(direction exchange.Direction) []*exchange.File {
	return util.FilteredSlice(tb.Files, func(f *exchange.File) bool { return f.Direction == direction })
}
