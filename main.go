package main

import "github.com/deploymenttheory/go-bfs/cmd"

func main() {
	cmd.Execute()
}
