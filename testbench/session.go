package testbench

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/daedaleanai/tbgen/exchange"
	"github.com/daedaleanai/tbgen/log"
	"github.com/daedaleanai/tbgen/util"
)

// SourceExtension is the extension of the generated testbench source.
const SourceExtension = ".v"

// Job describes one simulation handed to a Launcher.
type Job struct {
	// Top is the name of the top level module, the testbench.
	Top string
	// Dir is the working directory of the simulation.
	Dir string
	// Testbench is the path of the generated testbench source.
	Testbench string
	// Sources are the sources of the design under test.
	Sources []string
}

// Launcher runs a simulation to completion.
type Launcher interface {
	Launch(ctx context.Context, job Job) error
}

// Session writes the inputs of a testbench, launches the simulator and collects its
// outputs.
type Session struct {
	Testbench *Testbench
	Launcher  Launcher
	Dir       string
	Sources   []string

	PollAttempts int
	PollInterval time.Duration
}

// SourcePath returns the location of the generated testbench source.
func (s *Session) SourcePath() string {
	return filepath.Join(s.Dir, s.Testbench.Name+SourceExtension)
}

// Cleanup removes all exchange files that are not preserved.
func (s *Session) Cleanup() {
	for _, f := range s.Testbench.Files {
		if err := f.Remove(); err != nil {
			log.Warning("Failed to remove exchange file: %s.\n", err)
		}
	}
}

// Run performs one simulation and returns the decoded rows of every output file, keyed
// by file name.
func (s *Session) Run(ctx context.Context) (map[string][][]string, error) {
	if s.Launcher == nil {
		return nil, errors.New("no simulator to launch")
	}
	if s.Dir == "" {
		s.Dir = "."
	}
	dir, err := filepath.Abs(s.Dir)
	if err != nil {
		return nil, err
	}
	s.Dir = dir
	if err := util.EnsureDir(s.Dir); err != nil {
		return nil, err
	}
	defer s.Cleanup()

	for _, f := range s.Testbench.FilesOf(exchange.In) {
		if err := f.Write(); err != nil {
			return nil, err
		}
	}

	source, err := s.Testbench.Generate()
	if err != nil {
		return nil, errors.WithMessagef(err, "testbench %q", s.Testbench.Name)
	}
	if err := os.WriteFile(s.SourcePath(), []byte(source), util.FileMode); err != nil {
		return nil, errors.Wrapf(err, "failed to write testbench %q", s.Testbench.Name)
	}
	log.Debug("Generated testbench `%s`\n", s.SourcePath())

	job := Job{Top: s.Testbench.Name, Dir: s.Dir, Testbench: s.SourcePath(), Sources: s.Sources}
	if err := s.Launcher.Launch(ctx, job); err != nil {
		return nil, errors.WithMessagef(err, "simulation of %q failed", s.Testbench.Name)
	}

	outputs := s.Testbench.FilesOf(exchange.Out)
	paths := util.MappedSlice(outputs, (*exchange.File).Path)
	if err := exchange.WaitFor(ctx, paths, s.PollAttempts, s.PollInterval); err != nil {
		return nil, err
	}

	results := map[string][][]string{}
	for _, f := range outputs {
		rows, err := f.Read()
		if err != nil {
			return nil, err
		}
		results[f.Name] = rows
	}
	return results, nil
}
