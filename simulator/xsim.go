package simulator

import (
	"path/filepath"

	"github.com/daedaleanai/tbgen/assets"
	"github.com/daedaleanai/tbgen/testbench"
)

const xsimLibrary = "work"

// xsim compiles with xvlog, elaborates a snapshot with xelab and runs it with xsim.
type xsim struct{}

func xsimTclFile(job testbench.Job) string {
	return filepath.Join(job.Dir, "xsim.tcl")
}

func (xsim) scripts(s *Simulator, job testbench.Job) ([]Script, error) {
	script, err := s.script(assets.XsimTclTemplate, xsimTclFile(job), job)
	if err != nil {
		return nil, err
	}
	return []Script{script}, nil
}

func (xsim) commands(s *Simulator, job testbench.Job) []Command {
	compile := Command{Tool: "xvlog", Args: []string{"--work", xsimLibrary}}
	for _, macro := range s.macros() {
		compile.Args = append(compile.Args, "-d", macro)
	}
	compile.Args = append(compile.Args, s.flags("xvlog")...)
	compile.Args = append(compile.Args, sources(job)...)

	elaborate := Command{Tool: "xelab", Args: []string{
		"--timescale", s.Timescale,
		"--debug", "typical",
		"--snapshot", job.Top,
	}}
	elaborate.Args = append(elaborate.Args, s.flags("xelab")...)
	elaborate.Args = append(elaborate.Args, xsimLibrary+"."+job.Top)

	run := Command{Tool: "xsim", Args: []string{job.Top, "--tclbatch", xsimTclFile(job)}}
	run.Args = append(run.Args, s.flags("xsim")...)
	return []Command{compile, elaborate, run}
}
