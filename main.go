package main

import "github.com/RyanBlaney/sonido-split/cmd"

func main() {
	cmd.Execute()
}
