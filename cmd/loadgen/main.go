package main

import (
	"github.com/GoSim-25-26J-441/metrics-loadgen/cmd/loadgen/cmd"
)

func main() {
	cmd.Execute()
}
