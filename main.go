package main

import "pocket-poker/cmd"

func main() {
	cmd.Execute()
}
