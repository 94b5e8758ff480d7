package main

import "github.com/jfmyers9/tether/cmd"

func main() {
	cmd.Execute()
}
