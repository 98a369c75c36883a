package testbench

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/hdl"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/util"
)

//go:embed schema.cue
var schemaSource string

// ParameterDescription overrides a parameter of the device under test.
type ParameterDescription struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type,omitempty"`
	Value string `yaml:"value" json:"value"`
}

// PortDescription is one entry of the port list of the device under test.
type PortDescription struct {
	Name      string `yaml:"name" json:"name"`
	Direction string `yaml:"direction" json:"direction"`
	Left      string `yaml:"left" json:"left,omitempty"`
	Right     string `yaml:"right" json:"right,omitempty"`
	Signed    bool   `yaml:"signed" json:"signed,omitempty"`
}

// SignalDescription is an additional testbench signal.
type SignalDescription struct {
	Name    string `yaml:"name" json:"name"`
	Class   string `yaml:"class" json:"class"`
	Left    string `yaml:"left" json:"left,omitempty"`
	Right   string `yaml:"right" json:"right,omitempty"`
	Signed  bool   `yaml:"signed" json:"signed,omitempty"`
	Initial string `yaml:"initial" json:"initial,omitempty"`
	Format  string `yaml:"format" json:"format,omitempty"`
}

// ConnectDescription drives every signal matching Pattern from Target.
type ConnectDescription struct {
	Pattern string `yaml:"pattern" json:"pattern,omitempty"`
	Target  string `yaml:"target" json:"target"`
}

// InitDescription sets the initial value of every signal matching Pattern.
type InitDescription struct {
	Pattern string `yaml:"pattern" json:"pattern,omitempty"`
	Value   string `yaml:"value" json:"value"`
}

// InstanceDescription is an auxiliary module instantiated next to the device under test.
type InstanceDescription struct {
	Module      string            `yaml:"module" json:"module"`
	Name        string            `yaml:"name" json:"name"`
	Parameters  map[string]string `yaml:"parameters" json:"parameters,omitempty"`
	Connections map[string]string `yaml:"connections" json:"connections,omitempty"`
}

// FileDescription is an exchange file and, for inputs, its payload.
type FileDescription struct {
	Name      string      `yaml:"name" json:"name"`
	Direction string      `yaml:"direction" json:"direction,omitempty"`
	Kind      string      `yaml:"kind" json:"kind,omitempty"`
	Signals   []string    `yaml:"signals" json:"signals"`
	Header    bool        `yaml:"header" json:"header,omitempty"`
	Preserve  bool        `yaml:"preserve" json:"preserve,omitempty"`
	Condition string      `yaml:"condition" json:"condition,omitempty"`
	Data      [][]float64 `yaml:"data" json:"data,omitempty"`
}

// Description is the YAML document a testbench is built from.
type Description struct {
	Requires   string                 `yaml:"requires" json:"requires,omitempty"`
	Dut        string                 `yaml:"dut" json:"dut"`
	Name       string                 `yaml:"name" json:"name,omitempty"`
	Timescale  string                 `yaml:"timescale" json:"timescale,omitempty"`
	Rate       string                 `yaml:"rate" json:"rate,omitempty"`
	Clock      string                 `yaml:"clock" json:"clock,omitempty"`
	Sources    []string               `yaml:"sources" json:"sources,omitempty"`
	Defines    map[string]string      `yaml:"defines" json:"defines,omitempty"`
	Parameters []ParameterDescription `yaml:"parameters" json:"parameters,omitempty"`
	Ports      []PortDescription      `yaml:"ports" json:"ports"`
	Nets       map[string]string      `yaml:"nets" json:"nets,omitempty"`
	Signals    []SignalDescription    `yaml:"signals" json:"signals,omitempty"`
	Connect    []ConnectDescription   `yaml:"connect" json:"connect,omitempty"`
	Init       []InitDescription      `yaml:"init" json:"init,omitempty"`
	Assign     []string               `yaml:"assign" json:"assign,omitempty"`
	Instances  []InstanceDescription  `yaml:"instances" json:"instances,omitempty"`
	Files      []FileDescription      `yaml:"files" json:"files,omitempty"`

	// Dir is the directory relative source paths are resolved against.
	Dir string `yaml:"-" json:"-"`
}

// LoadDescription reads and validates the description at path.
func LoadDescription(path string) (*Description, error) {
	path, err := homedir.Expand(path)
	if err == nil {
		path, err = filepath.Abs(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "invalid description path %q", path)
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(hdl.ErrMissingFile, "description %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read description %s", path)
	}

	desc, err := ParseDescription(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "description %s", path)
	}
	desc.Dir = filepath.Dir(path)
	return desc, nil
}

// ParseDescription decodes a YAML description and validates it against the schema.
func ParseDescription(raw []byte) (*Description, error) {
	desc := &Description{}
	if err := yaml.UnmarshalStrict(raw, desc); err != nil {
		return nil, errors.Wrapf(hdl.ErrConfiguration, "invalid description: %s", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	desc.Dir = "."
	return desc, nil
}

// Validate checks the description against the embedded schema and the version it
// requires.
func (d *Description) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return errors.Wrap(schema.Err(), "invalid description schema")
	}

	value := schema.LookupPath(cue.ParsePath("#Testbench")).Unify(ctx.Encode(d))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		messages := []string{}
		for _, e := range cueerrors.Errors(err) {
			messages = append(messages, e.Error())
		}
		return errors.Wrapf(hdl.ErrConfiguration, "invalid description:\n  %s", strings.Join(messages, "\n  "))
	}

	if d.Requires != "" {
		required, err := util.ParseVersion(d.Requires)
		if err != nil {
			return errors.Wrap(hdl.ErrConfiguration, err.Error())
		}
		if !util.TbgenVersion.AtLeast(required) {
			return errors.Wrapf(hdl.ErrConfiguration, "description requires tbgen %s, this is %s", required, util.TbgenVersion)
		}
	}
	return nil
}

// SourcePaths returns the sources of the device under test, resolved against Dir.
func (d *Description) SourcePaths() ([]string, error) {
	paths := []string{}
	for _, s := range d.Sources {
		p, err := homedir.Expand(s)
		if err != nil {
			return nil, errors.Wrapf(hdl.ErrConfiguration, "source %q: %s", s, err)
		}
		if !filepath.IsAbs(p) {
			if p, err = filepath.Abs(filepath.Join(d.Dir, p)); err != nil {
				return nil, errors.Wrapf(hdl.ErrConfiguration, "source %q: %s", s, err)
			}
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func matcher(pattern string) (hdl.Matcher, error) {
	if pattern == "" {
		return hdl.All(), nil
	}
	return hdl.Pattern(pattern)
}

func signedness(signed bool) hdl.Signedness {
	if signed {
		return hdl.Signed
	}
	return hdl.Unspecified
}

// Build assembles the testbench. Exchange files are placed in workDir; fields left empty
// in the description are taken from defaults.
func (d *Description) Build(workDir string, defaults Options) (*Testbench, error) {
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, errors.Wrapf(hdl.ErrConfiguration, "working directory: %s", err)
	}

	opts := defaults
	for _, o := range []struct {
		value  string
		target *string
	}{
		{d.Name, &opts.Name},
		{d.Timescale, &opts.Timescale},
		{d.Rate, &opts.Rate},
		{d.Clock, &opts.Clock},
	} {
		if o.value != "" {
			*o.target = o.value
		}
	}

	ports := []Port{}
	for _, p := range d.Ports {
		ports = append(ports, Port{
			Name:       p.Name,
			Direction:  hdl.Class(p.Direction),
			Signedness: signedness(p.Signed),
			LeftLimit:  p.Left,
			RightLimit: p.Right,
		})
	}
	tb, err := New(d.Dut, ports, opts)
	if err != nil {
		return nil, err
	}

	for _, port := range util.SortedKeys(d.Nets) {
		tb.Nets[port] = d.Nets[port]
	}
	for _, p := range d.Parameters {
		tb.DutParameters = append(tb.DutParameters, Parameter{Name: p.Name, Type: p.Type, Value: p.Value})
	}

	for _, s := range d.Signals {
		c := &hdl.Connector{
			Name:         s.Name,
			Class:        hdl.Class(s.Class),
			Signedness:   signedness(s.Signed),
			LeftLimit:    s.Left,
			RightLimit:   s.Right,
			InitialValue: s.Initial,
			IOFormat:     s.Format,
		}
		if c.LeftLimit == "" && c.RightLimit == "" {
			c.LeftLimit, c.RightLimit = "0", "0"
		}
		if err := tb.AddConnector(c); err != nil {
			return nil, err
		}
	}

	for _, c := range d.Connect {
		m, err := matcher(c.Pattern)
		if err != nil {
			return nil, err
		}
		if err := tb.Connectors.ConnectMatching(m, c.Target); err != nil {
			return nil, err
		}
	}
	for _, i := range d.Init {
		m, err := matcher(i.Pattern)
		if err != nil {
			return nil, err
		}
		if tb.Connectors.InitMatching(m, i.Value) == 0 {
			log.Warning("Initial value %s matches no signal (pattern %q).\n", i.Value, i.Pattern)
		}
	}
	for _, a := range d.Assign {
		m, err := hdl.Pattern(a)
		if err != nil {
			return nil, err
		}
		tb.Assignable = append(tb.Assignable, m)
	}

	for _, i := range d.Instances {
		inst := Instance{Module: i.Module, Name: i.Name}
		for _, k := range util.SortedKeys(i.Parameters) {
			inst.Parameters = append(inst.Parameters, Connection{Port: k, Net: i.Parameters[k]})
		}
		for _, k := range util.SortedKeys(i.Connections) {
			inst.Connections = append(inst.Connections, Connection{Port: k, Net: i.Connections[k]})
		}
		tb.Instances = append(tb.Instances, inst)
	}

	for _, fd := range d.Files {
		f, err := fd.build(tb, workDir)
		if err != nil {
			return nil, err
		}
		if err := tb.AddFile(f); err != nil {
			return nil, err
		}
	}
	return tb, nil
}

func (fd FileDescription) build(tb *Testbench, workDir string) (*exchange.File, error) {
	connectors := []*hdl.Connector{}
	for _, name := range fd.Signals {
		c, err := tb.Connectors.Get(name)
		if err != nil {
			return nil, errors.WithMessagef(err, "exchange file %q", fd.Name)
		}
		connectors = append(connectors, c)
	}

	opts := exchange.Options{
		Name:       fd.Name,
		Dir:        workDir,
		Direction:  exchange.Direction(fd.Direction),
		Kind:       exchange.Kind(fd.Kind),
		Connectors: connectors,
		HasHeader:  fd.Header,
		Preserve:   fd.Preserve,
		Condition:  fd.Condition,
	}
	if len(fd.Data) > 0 {
		if fd.Direction == string(exchange.Out) {
			return nil, errors.Wrapf(hdl.ErrConfiguration, "exchange file %q: output files carry no data", fd.Name)
		}
		m, err := exchange.FromRows(fd.Data)
		if err != nil {
			return nil, errors.WithMessagef(err, "exchange file %q", fd.Name)
		}
		opts.Data = m
	}
	return exchange.NewFile(opts)
}

// String summarizes the description for log messages.
func (d *Description) String() string {
	return fmt.Sprintf("%s (%d ports, %d files)", d.Dut, len(d.Ports), len(d.Files))
}
