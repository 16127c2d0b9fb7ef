package main

import "github.com/jake-scott/snoo-buttons/cmd"

func main() {
	cmd.Execute()
}
