package main

import "github.com/mortdb/mort/cli/cmd"

func main() {
	cmd.Execute()
}
