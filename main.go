package main

import (
	"github.com/daedaleanai/tbgen/cmd"
)

func main() {
	cmd.Execute()
}
