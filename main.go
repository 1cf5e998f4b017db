package main

import (
	"os"

	"github.com/distillog/distill/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
