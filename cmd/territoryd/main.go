package main

import "github.com/tingold/orb-territory/cmd/territoryd/cmd"

func main() {
	cmd.Execute()
}
