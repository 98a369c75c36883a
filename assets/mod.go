package assets

import (
	"embed"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// Templates holds the scripts driving the simulators in batch mode.
var Templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// Names of the simulator script templates.
const (
	XsimTclTemplate  = "xsim.tcl.tmpl"
	QuestaDoTemplate = "questa.do.tmpl"
)

// SimulationScriptTemplate parametrizes the simulator scripts.
type SimulationScriptTemplate struct {
	DumpVcd     bool
	DumpVcdFile string
}
