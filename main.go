package main

import "github.com/RyanBlaney/sonido-pitch/cmd"

func main() {
	cmd.Execute()
}
