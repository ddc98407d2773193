package main

import "github.com/jmehdipour/energymon/cmd"

func main() {
	cmd.Execute()
}
