package main

import "github.com/agentic-research/mme/cmd"

func main() {
	cmd.Execute()
}
