package main

import (
	"os"

	"github.com/conneroisu/tagx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
