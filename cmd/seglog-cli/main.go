package main

import "github.com/seglog/seglog/cmd/seglog-cli/cmd"

func main() {
	cmd.Execute()
}
