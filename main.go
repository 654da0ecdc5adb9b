package main

import (
	"os"

	"github.com/conneroisu/switchboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
