package simulator

import (
	"path/filepath"
	"strings"

	"github.com/daedaleanai/tbgen/assets"
	"github.com/daedaleanai/tbgen/testbench"
)

const questaLibrary = "work"

// questa creates a library with vlib, compiles with vlog and runs vsim in batch mode.
type questa struct{}

func questaDoFile(job testbench.Job) string {
	return filepath.Join(job.Dir, "questa.do")
}

// precision returns the time precision of a timescale, e.g. "1ps" for "1ns/1ps".
func precision(timescale string) string {
	parts := strings.SplitN(timescale, "/", 2)
	return strings.ReplaceAll(parts[len(parts)-1], " ", "")
}

func (questa) scripts(s *Simulator, job testbench.Job) ([]Script, error) {
	script, err := s.script(assets.QuestaDoTemplate, questaDoFile(job), job)
	if err != nil {
		return nil, err
	}
	return []Script{script}, nil
}

func (questa) commands(s *Simulator, job testbench.Job) []Command {
	library := Command{Tool: "vlib", Args: []string{questaLibrary}}

	compile := Command{Tool: "vlog", Args: []string{"-work", questaLibrary}}
	for _, macro := range s.macros() {
		compile.Args = append(compile.Args, "+define+"+macro)
	}
	compile.Args = append(compile.Args, s.flags("vlog")...)
	compile.Args = append(compile.Args, sources(job)...)

	run := Command{Tool: "vsim", Args: []string{"-c", "-t", precision(s.Timescale), "-do", questaDoFile(job)}}
	run.Args = append(run.Args, s.flags("vsim")...)
	run.Args = append(run.Args, questaLibrary+"."+job.Top)
	return []Command{library, compile, run}
}
