package main

import (
	"os"

	"github.com/bianoble/hostpatch/cmd/hostpatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
