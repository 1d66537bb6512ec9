package main

import "github.com/OpenTraceLab/regbind/cmd/regbind/cmd"

func main() {
	cmd.Execute()
}
