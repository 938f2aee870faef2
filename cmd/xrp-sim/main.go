package main

import "github.com/oshokin/xrp-sim/cmd/xrp-sim/cmd"

func main() {
	cmd.Execute()
}
