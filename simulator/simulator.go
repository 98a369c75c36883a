package simulator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/assets"
	"github.com/daedaleanai/tbgen/config"
	"github.com/daedaleanai/tbgen/hdl"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/testbench"
	"github.com/daedaleanai/tbgen/util"
)

// Names of the supported simulators.
const (
	Icarus = "icarus"
	Xsim   = "xsim"
	Questa = "questa"
)

// Names lists the supported simulators.
var Names = []string{Icarus, Xsim, Questa}

// Command is one tool invocation of a simulation.
type Command struct {
	Tool string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Tool}, c.Args...), " ")
}

// Script is an auxiliary file a simulation needs next to the testbench.
type Script struct {
	Path     string
	Contents string
}

type variant interface {
	scripts(s *Simulator, job testbench.Job) ([]Script, error)
	commands(s *Simulator, job testbench.Job) []Command
}

// Simulator launches one of the supported HDL simulators.
type Simulator struct {
	Name      string
	Timescale string
	DumpVcd   bool
	// Defines are passed to the compiler as preprocessor macros.
	Defines map[string]string
	// Flags holds extra command line flags per tool.
	Flags map[string]string
	// Output receives the output of the tools, it is discarded if nil.
	Output io.Writer

	variant variant
}

// New returns the simulator with the given name, configured from cfg.
func New(name string, cfg config.Config) (*Simulator, error) {
	s := &Simulator{
		Name:      name,
		Timescale: cfg.Timescale,
		DumpVcd:   cfg.DumpVcd,
		Defines:   map[string]string{"SIMULATION": ""},
		Flags:     cfg.SimulatorFlags,
	}
	switch name {
	case Icarus:
		s.variant = icarus{}
	case Xsim:
		s.variant = xsim{}
	case Questa:
		s.variant = questa{}
	default:
		return nil, errors.Wrapf(hdl.ErrConfiguration, "unknown simulator %q, expected one of %s", name, strings.Join(Names, ", "))
	}
	if s.Timescale == "" {
		s.Timescale = config.DefaultTimescale
	}
	if s.Flags == nil {
		s.Flags = map[string]string{}
	}
	return s, nil
}

// flags returns the configured extra flags of a tool.
func (s *Simulator) flags(tool string) []string {
	return strings.Fields(s.Flags[tool])
}

// macros renders the defines as NAME or NAME=VALUE, sorted by name.
func (s *Simulator) macros() []string {
	macros := []string{}
	for _, key := range util.SortedKeys(s.Defines) {
		macro := key
		if value := s.Defines[key]; value != "" {
			macro = fmt.Sprintf("%s=%s", key, value)
		}
		macros = append(macros, macro)
	}
	return macros
}

func vcdFile(job testbench.Job) string {
	return filepath.Join(job.Dir, job.Top+".vcd")
}

// sources returns the design sources followed by the testbench.
func sources(job testbench.Job) []string {
	return append(append([]string{}, job.Sources...), job.Testbench)
}

// script renders the named script template of the assets for job.
func (s *Simulator) script(name, path string, job testbench.Job) (Script, error) {
	params := assets.SimulationScriptTemplate{
		DumpVcd:     s.DumpVcd,
		DumpVcdFile: vcdFile(job),
	}
	var buff bytes.Buffer
	if err := assets.Templates.ExecuteTemplate(&buff, name, params); err != nil {
		return Script{}, errors.Wrapf(err, "cannot execute the %s template", name)
	}
	return Script{Path: path, Contents: buff.String()}, nil
}

// Scripts returns the auxiliary files of the simulation of job.
func (s *Simulator) Scripts(job testbench.Job) ([]Script, error) {
	return s.variant.scripts(s, job)
}

// Commands returns the tool invocations of the simulation of job, in order.
func (s *Simulator) Commands(job testbench.Job) []Command {
	return s.variant.commands(s, job)
}

// Launch writes the auxiliary files and runs all commands in the job directory. It
// returns once the simulation has finished.
func (s *Simulator) Launch(ctx context.Context, job testbench.Job) error {
	scripts, err := s.Scripts(job)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if err := os.WriteFile(script.Path, []byte(script.Contents), util.FileMode); err != nil {
			return errors.Wrapf(err, "failed to write %s", script.Path)
		}
	}

	for _, c := range s.Commands(job) {
		if err := s.run(ctx, job.Dir, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) run(ctx context.Context, dir string, c Command) error {
	log.Debug("Running %s command: '%s'\n", s.Name, c)

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Tool, c.Args...)
	cmd.Dir = dir
	if s.Output != nil {
		cmd.Stdout = io.MultiWriter(&output, s.Output)
	} else {
		cmd.Stdout = &output
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "%s interrupted", c.Tool)
		}
		return errors.Wrapf(err, "%s failed:\n%s", c.Tool, tail(output.String(), 20))
	}
	return nil
}

// tail returns the last n lines of text.
func tail(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
