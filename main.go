package main

import "github.com/gridmesh/scledit/cmd"

func main() {
	cmd.Execute()
}
