package simulator

import (
	"path/filepath"

	"github.com/daedaleanai/tbgen/testbench"
)

// icarus compiles with iverilog and runs the result with vvp.
type icarus struct{}

func (icarus) scripts(*Simulator, testbench.Job) ([]Script, error) {
	return nil, nil
}

func (icarus) commands(s *Simulator, job testbench.Job) []Command {
	image := filepath.Join(job.Dir, job.Top+".vvp")

	compile := Command{Tool: "iverilog", Args: []string{"-g2012", "-s", job.Top, "-o", image}}
	for _, macro := range s.macros() {
		compile.Args = append(compile.Args, "-D", macro)
	}
	if s.DumpVcd {
		compile.Args = append(compile.Args, "-D", testbench.DumpMacro)
	}
	compile.Args = append(compile.Args, s.flags("iverilog")...)
	compile.Args = append(compile.Args, sources(job)...)

	run := Command{Tool: "vvp", Args: []string{"-n"}}
	run.Args = append(run.Args, s.flags("vvp")...)
	run.Args = append(run.Args, image)
	return []Command{compile, run}
}
