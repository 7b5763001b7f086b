package main

import (
	"os"

	"github.com/piaaz/botfleet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
