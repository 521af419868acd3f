package main

import "github.com/mljr/facematch/cmd"

func main() {
	cmd.Execute()
}
