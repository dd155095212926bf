package main

import "github.com/paraprobe/paraprobe/cmd"

func main() {
	cmd.Execute()
}
