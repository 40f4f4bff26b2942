package main

import (
	"os"

	"github.com/bianoble/prebundle/cmd/prebundle/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
