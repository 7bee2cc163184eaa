package main

import "github.com/iksnae/cortex-session/cmd"

func main() {
	cmd.Execute()
}
